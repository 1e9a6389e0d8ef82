package auth

import "time"

// Config holds the service-level settings. Populated from the environment
// via pkg/config.
type Config struct {
	RedirectDelay  time.Duration `env:"AUTH_REDIRECT_DELAY" envDefault:"2s"`
	ResendCooldown time.Duration `env:"AUTH_RESEND_COOLDOWN" envDefault:"60s"`

	DefaultDestination string `env:"AUTH_DEST_DEFAULT" envDefault:"/"`
	AdminDestination   string `env:"AUTH_DEST_ADMIN" envDefault:"/admin"`
	SignInPath         string `env:"AUTH_PATH_SIGNIN" envDefault:"/signin"`
	CallbackPath       string `env:"AUTH_PATH_CALLBACK" envDefault:"/auth/callback"`
	PasswordUpdatePath string `env:"AUTH_PATH_PASSWORD_UPDATE" envDefault:"/recover?stage=update"`
}
