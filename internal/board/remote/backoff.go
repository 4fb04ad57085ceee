package remote

import (
	"math/rand"
	"time"
)

// BackoffConfig: паузы между попытками переподключения realtime потока.
// Jitter: доля случайного разброса вокруг паузы (0.5 даёт от 0.5x до 1.5x).
type BackoffConfig struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       float64
}

func DefaultBackoff() BackoffConfig {
	return BackoffConfig{
		InitialDelay: 250 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2,
		Jitter:       0.5,
	}
}

// delay: пауза перед попыткой attempt (с 1) без разброса.
func (cfg BackoffConfig) delay(attempt int) time.Duration {
	d := cfg.InitialDelay
	if d <= 0 {
		return 0
	}
	mult := cfg.Multiplier
	if mult < 1 {
		mult = 1
	}
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * mult)
		if cfg.MaxDelay > 0 && d >= cfg.MaxDelay {
			return cfg.MaxDelay
		}
	}
	return d
}

// reconnectBackoff считает попытки текущего обрыва. Reset после успешного
// переподключения, чтобы следующий обрыв снова начинался с короткой паузы.
type reconnectBackoff struct {
	cfg     BackoffConfig
	rng     *rand.Rand
	attempt int
}

func newReconnectBackoff(cfg BackoffConfig, rng *rand.Rand) *reconnectBackoff {
	return &reconnectBackoff{cfg: cfg, rng: rng}
}

// Next возвращает паузу перед следующей попыткой.
func (b *reconnectBackoff) Next() time.Duration {
	b.attempt++
	d := b.cfg.delay(b.attempt)
	if b.cfg.Jitter > 0 && b.rng != nil {
		f := 1 + b.cfg.Jitter*(2*b.rng.Float64()-1)
		d = time.Duration(float64(d) * f)
	}
	return d
}

func (b *reconnectBackoff) Attempt() int {
	return b.attempt
}

func (b *reconnectBackoff) Reset() {
	b.attempt = 0
}
