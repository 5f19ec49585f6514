package repomanager

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/recipebox/internal/logging"
)

// gooseLogger routes goose output into the application log stream.
type gooseLogger struct {
	ctx    context.Context
	logger logging.Logger
}

var osExit = os.Exit

func (g *gooseLogger) Printf(format string, v ...any) {
	g.logger.Info(g.ctx, strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (g *gooseLogger) Fatalf(format string, v ...any) {
	g.logger.Error(g.ctx, strings.TrimSpace(fmt.Sprintf(format, v...)))
	osExit(1)
}
