package browser

import (
	"context"

	"github.com/entrhq/textfrag/pkg/pagetext"
)

// waitStable samples the page size every policy.Interval until it has been
// unchanged for policy.MinStableSamples consecutive samples or MaxWait worth
// of samples have been taken. A zero size never counts as stable. It returns
// the number of samples taken.
//
// Running out of samples is not an error; the page is read as it is.
func waitStable(ctx context.Context, size func() (int, error), policy pagetext.WaitPolicy) (int, error) {
	maxChecks := int(policy.MaxWait / policy.Interval)
	if maxChecks < 1 {
		maxChecks = 1
	}

	lastSize := 0
	stable := 0

	for checks := 1; checks <= maxChecks; checks++ {
		current, err := size()
		if err != nil {
			return checks, err
		}

		if lastSize != 0 && current == lastSize {
			stable++
		} else {
			stable = 0
		}

		if stable >= policy.MinStableSamples {
			return checks, nil
		}
		lastSize = current

		if err := sleep(ctx, policy.Interval); err != nil {
			return checks, err
		}
	}

	return maxChecks, nil
}
