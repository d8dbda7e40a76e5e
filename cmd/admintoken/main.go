// Command admintoken выпускает access токен с ролью admin для PUT /api/catalogs/:id.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/catalog-backend/internal/config"
	"github.com/ignatzorin/catalog-backend/internal/logger"
	"github.com/ignatzorin/catalog-backend/internal/service"
)

func main() {
	ttl := flag.Duration("ttl", time.Hour, "время жизни токена")
	subject := flag.String("subject", "", "UUID субъекта (по умолчанию случайный)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("admintoken: ошибка загрузки конфигурации: %v", err)
	}

	id := uuid.New()
	if *subject != "" {
		if id, err = uuid.Parse(*subject); err != nil {
			logger.Log.Fatalf("admintoken: неверный subject: %v", err)
		}
	}

	token, exp, err := service.NewTokenManager(cfg.JWTSecret, *ttl).GenerateAccess(id, service.RoleAdmin)
	if err != nil {
		logger.Log.Fatalf("admintoken: не удалось выпустить токен: %v", err)
	}

	logger.Log.WithField("subject", id).WithField("expires_at", exp.Format(time.RFC3339)).Info("admintoken: токен выпущен")
	fmt.Fprintln(os.Stdout, token)
}
