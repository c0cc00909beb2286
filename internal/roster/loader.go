package roster

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/mentorloop/mentormatch/internal/csvio"
)

// LoadPopulation reads the application and interview CSV exports for one
// population and outer-joins them on identityColumn. Zero application rows is
// fatal since no meaningful person records can be built from an interview
// file alone; a missing or empty interview file only degrades the merge.
func LoadPopulation(applicationPath, interviewPath, identityColumn string, logger *zap.Logger) ([]*csvio.MergedRow, error) {
	application, err := csvio.ReadFile(applicationPath)
	if err != nil {
		return nil, fmt.Errorf("loading application data: %w", err)
	}

	if application.Len() == 0 {
		return nil, fmt.Errorf("no application rows in %q: cannot build person records without application data", applicationPath)
	}

	interview, err := readInterview(interviewPath, logger)
	if err != nil {
		return nil, err
	}

	merged := csvio.Merge(application, interview, identityColumn, logger)

	logger.Info("merged population sources",
		zap.String("identity_column", identityColumn),
		zap.Int("application_rows", application.Len()),
		zap.Int("interview_rows", interview.Len()),
		zap.Int("merged_rows", len(merged)),
	)

	return merged, nil
}

func readInterview(path string, logger *zap.Logger) (*csvio.Table, error) {
	if path == "" {
		logger.Warn("no interview file configured, using application data only")
		return &csvio.Table{}, nil
	}

	interview, err := csvio.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("interview file not found, using application data only", zap.String("path", path))
			return &csvio.Table{}, nil
		}
		return nil, fmt.Errorf("loading interview data: %w", err)
	}

	if interview.Len() == 0 {
		logger.Warn("interview file has no rows", zap.String("path", path))
	}

	return interview, nil
}
