package app

import (
	"github.com/fiffu/stockwatch/lib/session"
)

type PincodeView struct {
	Pincode string `json:"pincode"`
}

type MessageView struct {
	Message string `json:"message"`
}

type SessionView struct {
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	ExpiresAt *int64 `json:"expiresAt,omitempty"`
}

func (view SessionView) From(claims *session.Claims) SessionView {
	view = SessionView{Email: claims.Email, Name: claims.Name}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Unix()
		view.ExpiresAt = &exp
	}
	return view
}
