package service

import (
	"errors"
	"log/slog"
	"time"

	"github.com/cwrk-planet/board-service/internal/domain"
	"github.com/cwrk-planet/board-service/internal/metrics"

	"github.com/sony/gobreaker"
)

type BreakerConfig struct {
	Name             string
	FailureThreshold uint32        // подряд неудачных записей до размыкания
	OpenTimeout      time.Duration // сколько держать open перед half-open
}

// Breaker защищает хранилище от лавины запросов, когда БД лежит:
// в open-состоянии запись сразу падает с ErrStorage.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.Name == "" {
		cfg.Name = "storage"
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 10 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// ошибки данных (нет комнаты, дубликат) не говорят о здоровье БД
		IsSuccessful: func(err error) bool {
			return err == nil || isDataErr(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("storage breaker state changed", "name", name, "from", from.String(), "to", to.String())
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
		},
	}

	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Do выполняет fn через breaker. Ошибки данных возвращаются как есть,
// всё остальное (включая open-состояние) заворачивается в StorageError.
func (b *Breaker) Do(op string, fn func() error) error {
	var err error
	if b == nil {
		err = fn()
	} else {
		_, err = b.cb.Execute(func() (any, error) {
			return nil, fn()
		})
	}
	if err == nil || isDataErr(err) {
		return err
	}
	metrics.StorageErrors.WithLabelValues(op).Inc()
	return storageErr(op, err)
}

func isDataErr(err error) bool {
	return errors.Is(err, domain.ErrRoomNotFound) ||
		errors.Is(err, domain.ErrUserNotFound) ||
		errors.Is(err, domain.ErrEmptyMessage) ||
		errors.Is(err, domain.ErrInvalidText) ||
		errors.Is(err, domain.ErrInvalidData) ||
		errors.Is(err, domain.ErrInvalidOpKind) ||
		errors.Is(err, domain.ErrAlreadyExists) ||
		errors.Is(err, domain.ErrOpNotFound)
}

func (b *Breaker) State() gobreaker.State {
	if b == nil {
		return gobreaker.StateClosed
	}
	return b.cb.State()
}
