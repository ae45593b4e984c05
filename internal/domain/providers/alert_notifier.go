package providers

import (
	"context"

	"github.com/zatekoja/feediq/internal/domain/entities"
)

// AlertNotifier escalates feedback that needs immediate attention
type AlertNotifier interface {
	NotifyLowRating(ctx context.Context, feedback *entities.Feedback) error
}
