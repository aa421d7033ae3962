// Package gate implements the PIN gate in front of the record API.
//
// Session state lives entirely in two signed cookies, one per tier, so the
// server keeps no session table. Each cookie holds an HS256 token whose tier
// claim binds it to its cookie name, which keeps a standard marker from being
// replayed as a hardcore one.
package gate

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"

	"github.com/morshedkoli/macapp/internal/macsvc/apperr"
)

const (
	UnlockedCookie = "lock_unlocked"
	HardcoreCookie = "lock_hardcore"

	SessionTTL = 4 * time.Hour

	_tierClaim = "tier"
)

// Tier is the unlock level derived from the presented markers.
// Hardcore implies unlocked; there is no way to hold it alone.
type Tier int

const (
	Locked Tier = iota
	Unlocked
	HardcoreUnlocked
)

func (t Tier) String() string {
	switch t {
	case Unlocked:
		return "unlocked"
	case HardcoreUnlocked:
		return "hardcore"
	default:
		return "locked"
	}
}

func (t Tier) IsUnlocked() bool { return t >= Unlocked }
func (t Tier) IsHardcore() bool { return t == HardcoreUnlocked }

// Status is what the status and unlock endpoints report.
type Status struct {
	Unlocked bool `json:"unlocked"`
	Hardcore bool `json:"hardcore"`
}

func (t Tier) Status() Status {
	return Status{Unlocked: t.IsUnlocked(), Hardcore: t.IsHardcore()}
}

var (
	ErrPinRequired   = apperr.Validation("pin", "PIN is required")
	ErrWrongPin      = apperr.Auth("Invalid PIN")
	ErrLocked        = apperr.Auth("Locked")
	ErrNotConfigured = apperr.Misconfigured("Server PINs not configured. Set LOCK_PIN or HARDCORE_PIN.")
)

type Options struct {
	StandardPin string
	HardcorePin string
	// SigningKey signs the session markers. Changing it locks every client.
	SigningKey   []byte
	SecureCookie bool
	TTL          time.Duration
}

type Gate struct {
	standardPin string
	hardcorePin string
	tokenAuth   *jwtauth.JWTAuth
	secure      bool
	ttl         time.Duration
}

func New(opts Options) *Gate {
	ttl := opts.TTL
	if ttl == 0 {
		ttl = SessionTTL
	}
	return &Gate{
		standardPin: opts.StandardPin,
		hardcorePin: opts.HardcorePin,
		tokenAuth:   jwtauth.New("HS256", opts.SigningKey, nil),
		secure:      opts.SecureCookie,
		ttl:         ttl,
	}
}

func (g *Gate) Configured() bool {
	return g.standardPin != "" || g.hardcorePin != ""
}

// Check classifies pin. The hardcore secret is tried on its own and wins when
// both secrets are equal.
func (g *Gate) Check(pin string) (Tier, error) {
	pin = strings.TrimSpace(pin)
	if pin == "" {
		return Locked, ErrPinRequired
	}
	if !g.Configured() {
		log.Error("unlock attempted but neither LOCK_PIN nor HARDCORE_PIN is set")
		return Locked, ErrNotConfigured
	}

	switch {
	case secretMatches(g.hardcorePin, pin):
		return HardcoreUnlocked, nil
	case secretMatches(g.standardPin, pin):
		return Unlocked, nil
	}
	return Locked, ErrWrongPin
}

func secretMatches(secret, pin string) bool {
	if secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(pin)) == 1
}

// Unlock checks pin and, on success, sets the markers for the granted tier.
func (g *Gate) Unlock(w http.ResponseWriter, pin string) (Tier, error) {
	tier, err := g.Check(pin)
	if err != nil {
		return Locked, err
	}
	if err := g.issue(w, tier); err != nil {
		return Locked, apperr.Store("could not sign session", err)
	}
	return tier, nil
}

func (g *Gate) issue(w http.ResponseWriter, tier Tier) error {
	unlocked, err := g.sign(Unlocked)
	if err != nil {
		return err
	}
	http.SetCookie(w, g.cookie(UnlockedCookie, unlocked, int(g.ttl.Seconds())))

	if !tier.IsHardcore() {
		// a standard unlock replaces any earlier hardcore session
		http.SetCookie(w, g.cookie(HardcoreCookie, "", -1))
		return nil
	}

	hardcore, err := g.sign(HardcoreUnlocked)
	if err != nil {
		return err
	}
	http.SetCookie(w, g.cookie(HardcoreCookie, hardcore, int(g.ttl.Seconds())))
	return nil
}

// Lock clears both markers whatever tier was held.
func (g *Gate) Lock(w http.ResponseWriter) {
	http.SetCookie(w, g.cookie(UnlockedCookie, "", -1))
	http.SetCookie(w, g.cookie(HardcoreCookie, "", -1))
}

func (g *Gate) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (g *Gate) sign(tier Tier) (string, error) {
	claims := map[string]interface{}{_tierClaim: tier.String()}
	jwtauth.SetIssuedNow(claims)
	jwtauth.SetExpiryIn(claims, g.ttl)

	_, token, err := g.tokenAuth.Encode(claims)
	return token, err
}

// Tier reads the markers on r. Expired, forged or mismatched markers count
// as absent.
func (g *Gate) Tier(r *http.Request) Tier {
	if _, ok := g.marker(r, UnlockedCookie, Unlocked); !ok {
		return Locked
	}
	if _, ok := g.marker(r, HardcoreCookie, HardcoreUnlocked); ok {
		return HardcoreUnlocked
	}
	return Unlocked
}

// Expiry returns when the unlocked marker on r stops being accepted, or the
// zero time when r carries no valid marker.
func (g *Gate) Expiry(r *http.Request) time.Time {
	exp, _ := g.marker(r, UnlockedCookie, Unlocked)
	return exp
}

// marker verifies cookie name and returns the token's expiry.
func (g *Gate) marker(r *http.Request, name string, want Tier) (time.Time, bool) {
	c, err := r.Cookie(name)
	if err != nil || c.Value == "" {
		return time.Time{}, false
	}

	token, err := jwtauth.VerifyToken(g.tokenAuth, c.Value)
	if err != nil {
		log.Debugf("rejected %s marker: %v", name, err)
		return time.Time{}, false
	}

	tier, ok := token.Get(_tierClaim)
	if !ok || tier != want.String() {
		return time.Time{}, false
	}
	return token.Expiration(), true
}

type contextKey struct{}

// RequireUnlocked rejects requests below the unlocked tier and stores the
// tier on the request context for handlers.
func (g *Gate) RequireUnlocked(onLocked func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tier := g.Tier(r)
			if !tier.IsUnlocked() {
				onLocked(w, r, ErrLocked)
				return
			}
			ctx := context.WithValue(r.Context(), contextKey{}, tier)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext returns the tier stored by RequireUnlocked.
func FromContext(ctx context.Context) Tier {
	tier, _ := ctx.Value(contextKey{}).(Tier)
	return tier
}
