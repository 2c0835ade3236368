package botsession

import (
	"fmt"
	"time"

	"nvc-coach/internal/session"
)

// welcomeCredits is gifted to every new account on first contact;
// monthlyCredits tops the gift balance up every giftInterval.
const (
	welcomeCredits = 5
	monthlyCredits = 5
	giftInterval   = 30 * 24 * time.Hour
)

// Credits tracks a user's message budget. Only the three counters are
// persisted; the spendable balance is always derived from them, never
// stored, so a stale snapshot can't be trusted back from storage.
type Credits struct {
	Used      int `json:"used"`
	Purchased int `json:"purchased"`
	Gifted    int `json:"gifted"`
}

// Available is the number of messages the user can still spend.
func (c Credits) Available() int {
	return c.Purchased + c.Gifted - c.Used
}

// Prefs holds per-user delivery preferences.
type Prefs struct {
	VoiceReplies bool   `json:"voice_replies"`
	Language     string `json:"language"`
}

// Account is the user-scoped billing and preferences slot at its
// current version.
type Account struct {
	Version  int       `json:"version"`
	UserID   int64     `json:"user_id"`
	Credits  Credits   `json:"credits"`
	Prefs    Prefs     `json:"prefs"`
	LastGift time.Time `json:"last_gift"`
}

// GrantMonthly adds the periodic gift once giftInterval has elapsed
// since the last one. Reports whether a grant happened.
func (a *Account) GrantMonthly(now time.Time) bool {
	if now.Sub(a.LastGift) < giftInterval {
		return false
	}
	a.Credits.Gifted += monthlyCredits
	a.LastGift = now
	return true
}

func newAccount(scope session.Scope) any {
	return &Account{
		Version:  3,
		UserID:   scope.UserID,
		Credits:  Credits{Gifted: welcomeCredits},
		Prefs:    Prefs{Language: "en"},
		LastGift: time.Now().UTC(),
	}
}

// accountV1 kept two loose counters and a premium flag. The flag was
// obsolete before versioning landed and is dropped on migration.
type accountV1 struct {
	Version   int  `json:"version"`
	Used      int  `json:"used"`
	Purchased int  `json:"purchased"`
	Premium   bool `json:"premium"`
}

func newAccountV1(scope session.Scope) any {
	return &accountV1{Version: 1}
}

// accountV2 collapsed the counters into one Credits record and started
// tracking gifted credits separately.
type accountV2 struct {
	Version int     `json:"version"`
	UserID  int64   `json:"user_id"`
	Credits Credits `json:"credits"`
}

func newAccountV2(scope session.Scope) any {
	return &accountV2{Version: 2, UserID: scope.UserID, Credits: Credits{Gifted: welcomeCredits}}
}

func migrateAccountV2(prev any, scope session.Scope) (any, error) {
	v1, ok := prev.(*accountV1)
	if !ok {
		return nil, fmt.Errorf("account v2: unexpected input %T", prev)
	}
	// Pre-v2 users never had gifted credits tracked; grant the welcome
	// gift retroactively so their balance doesn't drop on upgrade.
	// Nor did v1 store the user id: it comes from the upgrading turn.
	return &accountV2{
		Version: 2,
		UserID:  scope.UserID,
		Credits: Credits{Used: v1.Used, Purchased: v1.Purchased, Gifted: welcomeCredits},
	}, nil
}

func migrateAccountV3(prev any, scope session.Scope) (any, error) {
	v2, ok := prev.(*accountV2)
	if !ok {
		return nil, fmt.Errorf("account v3: unexpected input %T", prev)
	}
	userID := v2.UserID
	if userID == 0 {
		userID = scope.UserID
	}
	return &Account{
		Version: 3,
		UserID:  userID,
		Credits: v2.Credits,
		Prefs:   Prefs{Language: "en"},
		// Zero LastGift makes the next turn grant immediately, which
		// doubles as the upgrade gift for long-dormant accounts.
	}, nil
}

// AccountChain is the account slot's complete schema history.
var AccountChain = session.MustChain(SlotAccount,
	session.Version{Number: 1, New: newAccountV1},
	session.Version{Number: 2, New: newAccountV2, Migrate: migrateAccountV2},
	session.Version{Number: 3, New: newAccount, Migrate: migrateAccountV3},
)
