package agent

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/memvra/docbot/internal/router"
)

// DeleteResult reports both halves of a delete.
type DeleteResult = router.DeleteResult

// Delete removes the named artifact and all of its memory records. Both
// removals are attempted even if one fails.
func (a *Agent) Delete(ctx context.Context, name string) DeleteResult {
	return a.handler.Delete(ctx, name)
}

// WipeResult summarizes a full reset.
type WipeResult struct {
	Turns        int
	Records      int
	Files        int
	RulesRemoved bool
	Err          error
}

// Summary renders the result for the user.
func (r WipeResult) Summary() string {
	s := fmt.Sprintf("Wiped everything: cleared %d conversation turns, deleted %d memory records and %d files.",
		r.Turns, r.Records, r.Files)
	if r.RulesRemoved {
		s += " Behavioral rules were reset."
	}
	if r.Err != nil {
		s += fmt.Sprintf(" Some items could not be removed: %v", r.Err)
	}
	return s
}

// WipeAll clears every session, drops all memory records, deletes every
// managed file and removes the rule store. File deletion is best-effort;
// individual failures are reported in Err and do not stop the rest.
func (a *Agent) WipeAll(ctx context.Context) WipeResult {
	var (
		res  WipeResult
		errs []error
	)

	res.Turns = a.deps.Sessions.ClearAll()

	var records int
	err := a.call(ctx, "memory.wipe", func(ctx context.Context) error {
		var err error
		records, err = a.deps.Memory.Wipe(ctx)
		return err
	})
	if err != nil {
		errs = append(errs, fmt.Errorf("memory: %w", err))
	} else {
		res.Records = records
	}

	n, err := a.deps.Files.RemoveAll()
	res.Files = n
	if err != nil {
		errs = append(errs, fmt.Errorf("files: %w", err))
	}

	if a.deps.Rules != nil {
		removed, err := a.deps.Rules.Remove()
		res.RulesRemoved = removed
		if err != nil {
			errs = append(errs, fmt.Errorf("rules: %w", err))
		}
	}

	res.Err = errors.Join(errs...)
	a.logger.Info("wiped",
		zap.Int("turns", res.Turns),
		zap.Int("records", res.Records),
		zap.Int("files", res.Files),
		zap.Bool("rules", res.RulesRemoved),
		zap.Error(res.Err))
	return res
}
