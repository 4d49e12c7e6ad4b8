package tools

import (
	"context"
	"time"

	"github.com/lexcodex/actloop/framework"
)

// DateLayout is the format returned by current_date.
const DateLayout = "2006-01-02 15:04:05"

// DateTool reports the local wall clock.
type DateTool struct {
	Now func() time.Time
}

func (t *DateTool) Name() string                          { return "current_date" }
func (t *DateTool) Description() string                   { return "Get the current date." }
func (t *DateTool) Parameters() []framework.ToolParameter { return nil }

func (t *DateTool) Invoke(ctx context.Context, args framework.Args) (any, error) {
	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	return now().Local().Format(DateLayout), nil
}
