package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Controller interface {
	Start(ctx context.Context) error
	Stop()
}

type DefaultController struct {
	runner   *Runner
	interval time.Duration

	mu         sync.Mutex
	cancelFunc context.CancelFunc
	started    bool
}

// NewController schedules runner every interval. A non-positive interval disables the
// background refresh; the cache is then filled only by live requests.
func NewController(runner *Runner, interval time.Duration) *DefaultController {
	return &DefaultController{
		runner:   runner,
		interval: interval,
	}
}

func (ctrl *DefaultController) Start(ctx context.Context) error {
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()

	if ctrl.interval <= 0 {
		zerolog.Ctx(ctx).Info().Msg("background cache refresh disabled")
		return nil
	}
	if ctrl.started {
		return fmt.Errorf("refresh already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	ctrl.cancelFunc = cancel
	ctrl.started = true

	go ctrl.runner.Run(ctx, ctrl.interval)
	return nil
}

// Stop cancels the running refresh and waits for it to return.
func (ctrl *DefaultController) Stop() {
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()

	if ctrl.cancelFunc == nil {
		return
	}
	ctrl.cancelFunc()
	<-ctrl.runner.Done()
	ctrl.cancelFunc = nil
}
