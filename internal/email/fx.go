package email

import (
	"go.uber.org/fx"
	"memberd/internal/config"
)

var Module = fx.Module("email",
	fx.Provide(NewFromConfig),
	fx.Invoke(NewListener),
)

func NewFromConfig(cfg config.Config) (Provider, error) {
	if !cfg.Email.Enabled {
		return &NoOpProvider{}, nil
	}
	return NewSMTP(Config{
		Host:     cfg.Email.Host,
		Port:     cfg.Email.Port,
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
		From:     cfg.Email.From,
		SiteName: cfg.Email.SiteName,
	})
}
