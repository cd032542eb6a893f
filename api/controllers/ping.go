package controllers

import (
	"net/http"

	"github.com/mason-hale/giftledger-backend/api/middleware"
	"github.com/mason-hale/giftledger-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "private", "status": "ok"}
		if company := middleware.CompanyIDFromContext(r.Context()); company != "" {
			payload["company_id"] = company
		}
		responses.WriteSuccess(w, payload)
	}
}
