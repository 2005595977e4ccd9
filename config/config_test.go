package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Auth: AuthConfig{
			JWTSecret:   "test-secret-key-for-unit-testing-2026",
			LoginDomain: "manasa.com",
			HandleMin:   4,
			HandleMax:   12,
		},
		Reminder: ReminderConfig{MinutesBefore: 15},
	}
}

func TestValidate_OK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("期望校验通过，实际: %v", err)
	}
}

func TestValidate_ShortSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.JWTSecret = "short"
	if err := cfg.Validate(); err == nil {
		t.Error("过短的 jwt_secret 应校验失败")
	}
}

func TestValidate_BadPort(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Error("非法端口应校验失败")
	}
}

func TestValidate_HandleBounds(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.HandleMin = 13
	if err := cfg.Validate(); err == nil {
		t.Error("handle_min > handle_max 应校验失败")
	}
}

func TestValidate_EmptyLoginDomain(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.LoginDomain = ""
	if err := cfg.Validate(); err == nil {
		t.Error("login_domain 为空应校验失败")
	}
}

func TestAuthRateWindow(t *testing.T) {
	s := ServerConfig{AuthRateSpan: "30s"}
	if got := s.AuthRateWindow(); got != 30*time.Second {
		t.Errorf("期望 30s，实际 %v", got)
	}
	s.AuthRateSpan = "garbage"
	if got := s.AuthRateWindow(); got != time.Minute {
		t.Errorf("非法值应回落到 1m，实际 %v", got)
	}
}
