package media

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"learnview/internal/storage"
)

// Prober reads the length of a media file in seconds.
type Prober interface {
	IsAvailable() bool
	Duration(ctx context.Context, filePath string) (int64, error)
}

// ProbeService fills in module durations in the background.
type ProbeService struct {
	prober  Prober
	storage *storage.SQLiteStorage
	logger  zerolog.Logger
}

func NewProbeService(prober Prober, store *storage.SQLiteStorage, logger zerolog.Logger) *ProbeService {
	return &ProbeService{
		prober:  prober,
		storage: store,
		logger:  logger,
	}
}

// ProcessModule probes one module and stores its duration. A module that
// cannot be probed is stored with duration 0 so it is not retried.
func (s *ProbeService) ProcessModule(ctx context.Context, module *storage.Module) error {
	duration, err := s.prober.Duration(ctx, module.Content)
	if err != nil {
		s.logger.Debug().Err(err).Str("id", module.ID).Msg("failed to read module duration")
		duration = 0
	} else {
		s.logger.Debug().
			Str("id", module.ID).
			Int64("duration", duration).
			Msg("duration read")
	}

	if err := s.storage.UpdateModuleDuration(module.ID, duration); err != nil {
		return err
	}
	module.Duration = &duration
	return nil
}

// Run processes modules without metadata in batches until none are left or
// ctx is done.
func (s *ProbeService) Run(ctx context.Context, batchSize int, delay time.Duration) {
	if !s.prober.IsAvailable() {
		s.logger.Warn().Msg("ffprobe not found - module durations will come from players")
		return
	}

	s.logger.Info().Msg("starting background metadata processing")

	totalProcessed := 0
	for {
		modules, err := s.storage.GetModulesWithoutMetadata(batchSize)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to get modules without metadata")
			return
		}
		if len(modules) == 0 {
			break
		}

		for i := range modules {
			select {
			case <-ctx.Done():
				s.logger.Info().Int("processed", totalProcessed).Msg("background processing cancelled")
				return
			default:
			}

			if err := s.ProcessModule(ctx, &modules[i]); err != nil {
				s.logger.Error().Err(err).Str("id", modules[i].ID).Msg("failed to process module")
				return
			}
			totalProcessed++

			if delay > 0 {
				time.Sleep(delay)
			}
		}
	}

	s.logger.Info().Int("processed", totalProcessed).Msg("background processing completed")
}
