package service

import (
	"context"
	"fmt"
	"time"

	"github.com/xiaot623/gogo/dashboard/internal/domain"
	"github.com/xiaot623/gogo/dashboard/policy"
)

// Browse lists a directory or reads a file under the data root. The result is
// a *domain.FileListing or a *domain.FileContent.
func (s *Service) Browse(ctx context.Context, rel string) (result any, err error) {
	defer s.observe("browse", time.Now(), &err)

	target, err := s.guard.Resolve(rel)
	if err != nil {
		return nil, err
	}

	op := policy.OpRead
	if target.Type() == domain.FileTypeDirectory {
		op = policy.OpList
	}
	if err := s.checkAccess(ctx, target.Rel, string(target.Type()), op); err != nil {
		return nil, err
	}

	if target.Type() == domain.FileTypeFile {
		return s.guard.Read(target)
	}

	listing, err := s.guard.List(target)
	if err != nil {
		return nil, err
	}
	visible := listing.Entries[:0]
	for _, entry := range listing.Entries {
		if s.allowed(ctx, entry.Path, string(entry.Type), policy.OpList) {
			visible = append(visible, entry)
		}
	}
	listing.Entries = visible
	listing.Count = len(visible)
	return listing, nil
}

func (s *Service) checkAccess(ctx context.Context, rel, fileType, op string) error {
	if s.policyEngine == nil {
		return nil
	}
	decision, reason, err := s.policyEngine.Evaluate(ctx, policy.NewInput(rel, fileType, op))
	if err != nil {
		return fmt.Errorf("policy evaluation failed: %w", err)
	}
	if decision == policy.DecisionBlock {
		s.logger.Debug("file access blocked by policy", "path", rel, "op", op, "reason", reason)
		return fmt.Errorf("path %q blocked by policy: %w", rel, domain.ErrPathViolation)
	}
	return nil
}

// allowed hides listing entries the policy blocks or fails to evaluate.
func (s *Service) allowed(ctx context.Context, rel, fileType, op string) bool {
	if err := s.checkAccess(ctx, rel, fileType, op); err != nil {
		return false
	}
	return true
}
