package redisrepo

import (
	"fmt"
	"strings"
)

const (
	POST_KEY             = "post:%s"       // <postID>
	POST_SLUG_KEY        = "post-slug:%s"  // <slug>
	POST_CACHE_KEY       = "post-cache:%s" // <slug>
	POSTS_CACHE_KEY      = "posts-cache"
	POSTS_BY_CREATED_KEY = "posts:by-created"

	ACCOUNT_KEY          = "account:%s"          // <accountID>
	ACCOUNT_EMAIL_KEY    = "account-email:%s"    // <email>
	ACCOUNT_SESSIONS_KEY = "account-sessions:%s" // <accountID>
	SESSION_KEY          = "session:%s"          // <token>
	RECOVERY_KEY         = "recovery:%s"         // <code>
	ATTEMPTS_KEY         = "attempts:%s"         // <scope>:<subject>

	AUTH_STATE_CHANNEL = "auth-state:%s" // <token>
)

const postKeyPrefix = "post:"

func PostKey(postID string) string {
	return fmt.Sprintf(POST_KEY, postID)
}

func postIDFromKey(key string) string {
	return strings.TrimPrefix(key, postKeyPrefix)
}

func PostSlugKey(slug string) string {
	return fmt.Sprintf(POST_SLUG_KEY, slug)
}

func PostCacheKey(slug string) string {
	return fmt.Sprintf(POST_CACHE_KEY, slug)
}

func PostsCacheKey() string {
	return POSTS_CACHE_KEY
}

func AccountKey(accountID string) string {
	return fmt.Sprintf(ACCOUNT_KEY, accountID)
}

func AccountEmailKey(email string) string {
	return fmt.Sprintf(ACCOUNT_EMAIL_KEY, email)
}

func AccountSessionsKey(accountID string) string {
	return fmt.Sprintf(ACCOUNT_SESSIONS_KEY, accountID)
}

func SessionKey(token string) string {
	return fmt.Sprintf(SESSION_KEY, token)
}

func RecoveryKey(code string) string {
	return fmt.Sprintf(RECOVERY_KEY, code)
}

func AttemptsKey(scope string) string {
	return fmt.Sprintf(ATTEMPTS_KEY, scope)
}

func AuthStateChannel(token string) string {
	return fmt.Sprintf(AUTH_STATE_CHANNEL, token)
}
