package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/catalog-backend/internal/logger"
)

// Logger интерфейс для логирования ошибок
type Logger interface {
	Errorf(format string, args ...interface{})
}

// RecoveryHandler обрабатывает panic в горутинах
type RecoveryHandler struct {
	logger Logger
}

// NewRecoveryHandler создает новый обработчик
func NewRecoveryHandler(logger Logger) *RecoveryHandler {
	return &RecoveryHandler{logger: logger}
}

// SafeGo запускает горутину с обработкой panic
func (rh *RecoveryHandler) SafeGo(fn func()) {
	go rh.Run(fn)
}

// SafeGoWithContext запускает горутину с контекстом и обработкой panic
func (rh *RecoveryHandler) SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	go rh.Run(func() { fn(ctx) })
}

// Run выполняет fn в текущей горутине, перехватывая panic.
func (rh *RecoveryHandler) Run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			rh.logger.Errorf("Panic in goroutine: %v\nStack trace:\n%s", r, debug.Stack())
		}
	}()
	fn()
}

// logrusLogger направляет panic в общий logrus логгер.
type logrusLogger struct{}

func (logrusLogger) Errorf(format string, args ...interface{}) {
	logger.Log.WithFields(logrus.Fields{"component": "goroutine"}).Errorf(format, args...)
}

// DefaultRecoveryHandler - глобальный обработчик с логированием через logrus
var DefaultRecoveryHandler = NewRecoveryHandler(logrusLogger{})

// SafeGo - упрощенная функция для запуска безопасной горутины
func SafeGo(fn func()) {
	DefaultRecoveryHandler.SafeGo(fn)
}

// SafeGoWithContext - упрощенная функция для запуска безопасной горутины с контекстом
func SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	DefaultRecoveryHandler.SafeGoWithContext(ctx, fn)
}
