// Package httpclient предоставляет общий HTTP-клиент для внешних API
// (индексер, прайсеры, swap-квоты) с connection pooling и таймаутами.
package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"sync"
	"time"
)

// Config содержит настройки HTTP-клиента
type Config struct {
	ConnectTimeout time.Duration // таймаут установки TCP соединения
	TotalTimeout   time.Duration // общий таймаут запроса

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration

	TLSHandshakeTimeout time.Duration
}

// DefaultConfig - параметры по умолчанию
//
// Внешний API не должен подвешивать цикл: любой запрос ограничен
// TotalTimeout, таймаут контекста запроса может быть строже.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout:      5 * time.Second,
		TotalTimeout:        15 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
}

// New создаёт клиент с заданной конфигурацией
func New(cfg Config) *http.Client {
	dialer := &net.Dialer{
		Timeout:   cfg.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: cfg.TLSHandshakeTimeout,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.TotalTimeout,
	}
}

var (
	global     *http.Client
	globalOnce sync.Once
)

// Get возвращает общий клиент процесса (один connection pool на все
// внешние API)
func Get() *http.Client {
	globalOnce.Do(func() {
		global = New(DefaultConfig())
	})
	return global
}
