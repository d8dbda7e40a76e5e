package logger

import (
	"github.com/sirupsen/logrus"
)

// Log - глобальный логгер. До вызова Init пишет в stderr текстом с уровнем info.
var Log = logrus.New()

// Init инициализирует структурированный логгер.
func Init(level string) {
	Log = logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	// Используем JSON формат для production, text для development
	Log.SetFormatter(&logrus.JSONFormatter{})
}

// SetTextFormatter устанавливает текстовый формат логов (для development).
func SetTextFormatter() {
	Log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}
