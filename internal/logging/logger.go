package logging

import (
	"github.com/ternarybob/arbor"
	arbormodels "github.com/ternarybob/arbor/models"

	"github.com/94faddy/dz-wrokshop/internal/config"
)

// New builds the process logger from Logging config, following the
// teacher's console/file writer wiring in internal/common/logger.go.
func New(cfg config.LoggingConfig) arbor.ILogger {
	logger := arbor.NewLogger()

	hasFile := false
	hasConsole := false
	for _, out := range cfg.Output {
		switch out {
		case "file":
			hasFile = true
		case "stdout", "console":
			hasConsole = true
		}
	}

	outputType := arbormodels.OutputFormatLogfmt
	if cfg.Format == "json" {
		outputType = arbormodels.OutputFormatJSON
	}

	if hasFile {
		logger = logger.WithFileWriter(arbormodels.WriterConfiguration{
			Type:             arbormodels.LogWriterTypeFile,
			FileName:         "./logs/dz-wrokshop.log",
			TimeFormat:       "15:04:05",
			MaxSize:          100 * 1024 * 1024,
			MaxBackups:       3,
			OutputType:       outputType,
			DisableTimestamp: false,
		})
	}

	if hasConsole || (!hasFile && !hasConsole) {
		logger = logger.WithConsoleWriter(arbormodels.WriterConfiguration{
			Type:             arbormodels.LogWriterTypeConsole,
			TimeFormat:       "15:04:05",
			OutputType:       outputType,
			DisableTimestamp: false,
		})
	}

	// Memory writer keeps arbor's in-memory log buffer registered,
	// mirroring the teacher's arbor.GetRegisteredMemoryWriter(arbor.WRITER_MEMORY)
	// usage; the Log Bus burst-on-connect comes from LogBus.Recent (§4.6).
	logger = logger.WithMemoryWriter(arbormodels.WriterConfiguration{
		Type: arbormodels.LogWriterTypeMemory,
	})

	return logger.WithLevelFromString(cfg.Level)
}
