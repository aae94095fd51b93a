package scanner

import (
	"context"

	guideerrors "github.com/conneroisu/guidebook/internal/errors"
	"github.com/conneroisu/guidebook/internal/watcher"
)

// HandleChanges applies a batch of file changes to the registry: removed
// files are dropped and everything else is rescanned. It has the signature
// of a watcher.ChangeHandler.
func (s *GuideScanner) HandleChanges(ctx context.Context, events []watcher.ChangeEvent) error {
	var errs []error
	for _, event := range events {
		if s.Excluded(event.Path) || !IsGuideFile(event.Path) {
			continue
		}
		if event.Gone() {
			s.logger.Debug(ctx, "Guide removed", "path", event.Path)
			s.RemoveFile(event.Path)
			continue
		}
		if err := s.ScanFile(ctx, event.Path); err != nil {
			s.logger.Warn(ctx, err, "Reloading guide failed", "path", event.Path)
			errs = append(errs, err)
		}
	}
	return guideerrors.CombineErrors(errs...)
}
