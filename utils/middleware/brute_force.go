package middleware

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/fee-management/utils/cache"
	"github.com/sahilchouksey/fee-management/utils/response"
)

// attemptWindow is how long failed login attempts are remembered
const attemptWindow = 15 * time.Minute

// lockouts is ordered from the harshest threshold down
var lockouts = []struct {
	attempts int64
	duration time.Duration
}{
	{25, 24 * time.Hour},
	{10, time.Hour},
	{5, 2 * time.Minute},
}

// LockoutFor returns how long to lock a client out after attempts failures
func LockoutFor(attempts int64) time.Duration {
	for _, l := range lockouts {
		if attempts >= l.attempts {
			return l.duration
		}
	}
	return 0
}

// BruteForceProtection throttles repeated failed logins per client IP and
// per account. A nil cache disables it.
type BruteForceProtection struct {
	redisCache *cache.RedisCache
}

// NewBruteForceProtection creates a new brute force protection instance
func NewBruteForceProtection(redisCache *cache.RedisCache) *BruteForceProtection {
	return &BruteForceProtection{
		redisCache: redisCache,
	}
}

func attemptKey(subject string) string {
	return "brute_force:attempts:" + subject
}

func lockKey(subject string) string {
	return "brute_force:lock:" + subject
}

func subjects(ip, email string) []string {
	out := []string{"ip:" + ip}
	if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
		out = append(out, "email:"+email)
	}
	return out
}

// CheckAndRecordAttempt rejects requests from a locked-out IP
func (b *BruteForceProtection) CheckAndRecordAttempt() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if b == nil || b.redisCache == nil {
			return c.Next()
		}
		if retry, locked := b.lockedFor(c.Context(), "ip:"+c.IP()); locked {
			return b.tooMany(c, retry)
		}
		return c.Next()
	}
}

// CheckAccount rejects a login for an account that is locked out. It reports
// whether the response has been written.
func (b *BruteForceProtection) CheckAccount(c *fiber.Ctx, email string) (bool, error) {
	if b == nil || b.redisCache == nil {
		return false, nil
	}
	if retry, locked := b.lockedFor(c.Context(), "email:"+strings.ToLower(strings.TrimSpace(email))); locked {
		return true, b.tooMany(c, retry)
	}
	return false, nil
}

func (b *BruteForceProtection) tooMany(c *fiber.Ctx, retry int) error {
	c.Set("Retry-After", fmt.Sprintf("%d", retry))
	return response.TooManyRequests(c, fmt.Sprintf("Too many failed attempts. Try again in %d seconds", retry))
}

// lockedFor reports whether subject is locked and for how many more seconds.
// Redis errors never lock anyone out.
func (b *BruteForceProtection) lockedFor(ctx context.Context, subject string) (int, bool) {
	locked, err := b.redisCache.Exists(ctx, lockKey(subject))
	if err != nil || !locked {
		return 0, false
	}
	ttl, _ := b.redisCache.TTL(ctx, lockKey(subject))
	retry := int(ttl.Seconds())
	if retry <= 0 {
		retry = 60
	}
	return retry, true
}

// RecordFailedAttempt counts a failed login for both the IP and the account
// and applies progressive lockouts
func (b *BruteForceProtection) RecordFailedAttempt(c *fiber.Ctx, ip, email string) error {
	if b == nil || b.redisCache == nil {
		return nil
	}
	ctx := c.Context()
	for _, subject := range subjects(ip, email) {
		attempts, err := b.redisCache.Increment(ctx, attemptKey(subject))
		if err != nil {
			return nil
		}
		if attempts == 1 {
			_ = b.redisCache.Expire(ctx, attemptKey(subject), attemptWindow)
		}
		if d := LockoutFor(attempts); d > 0 {
			if err := b.redisCache.Set(ctx, lockKey(subject), "locked", d); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordSuccessfulAttempt clears failed attempts on successful login
func (b *BruteForceProtection) RecordSuccessfulAttempt(c *fiber.Ctx, ip, email string) error {
	if b == nil || b.redisCache == nil {
		return nil
	}
	for _, subject := range subjects(ip, email) {
		_ = b.redisCache.Delete(c.Context(), attemptKey(subject), lockKey(subject))
	}
	return nil
}
