package app

import (
	"github.com/fiffu/stockwatch/config"
	"github.com/fiffu/stockwatch/lib/session"
)

func NewSessionCodec(cfg *config.Config) *session.Codec {
	return session.NewCodec(cfg.Session.CookieName, []byte(cfg.Session.Secret), cfg.SessionTTL(), cfg.Production())
}
