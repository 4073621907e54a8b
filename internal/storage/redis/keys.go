package redis

import (
	"fmt"

	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/model"
)

type keys struct {
	prefix string
}

func (k keys) user(id model.UserID) string {
	return fmt.Sprintf("%s:user:%s", k.prefix, id)
}

// usernameIndex maps username -> user id. Created with SETNX so it also
// enforces uniqueness.
func (k keys) usernameIndex(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", k.prefix, username)
}

func (k keys) recovery(id model.UserID) string {
	return fmt.Sprintf("%s:recovery:%s", k.prefix, id)
}

func (k keys) session(token string) string {
	return fmt.Sprintf("%s:session:%s", k.prefix, token)
}

// userSessions is the SET of session tokens held by a user
func (k keys) userSessions(id model.UserID) string {
	return fmt.Sprintf("%s:idx:user_sessions:%s", k.prefix, id)
}

// sessionExpiry is a ZSET of tokens scored by expiry (unix millis)
func (k keys) sessionExpiry() string {
	return fmt.Sprintf("%s:idx:session_expiry", k.prefix)
}

func (k keys) marker(id string) string {
	return fmt.Sprintf("%s:marker:%s", k.prefix, id)
}

// markerTimeline is a ZSET of marker ids scored by timestamp (unix millis)
func (k keys) markerTimeline() string {
	return fmt.Sprintf("%s:idx:markers", k.prefix)
}
