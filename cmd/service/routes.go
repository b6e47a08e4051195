// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"github.com/go-chi/chi/v5"
	"github.com/linuxfoundation/lfx-v2-log-search-service/internal/middleware"
)

// Mount registers the endpoints on r. Health checks stay public; everything else
// requires a bearer token.
func (s *LogSearchAPI) Mount(r chi.Router) {
	r.Get("/livez", s.Livez)
	r.Get("/readyz", s.Readyz)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(s.JWTAuth))

		r.Route("/index_sets/{id}", func(r chi.Router) {
			r.Post("/search", s.Search)
			r.Post("/export", s.Export)
			r.Post("/context", s.Context)
			r.Post("/tail", s.Tail)
			r.Get("/fields", s.Fields)
			r.Post("/sort_list/verify", s.VerifySortList)
			r.Get("/history", s.History)
		})
		r.Get("/history", s.HistoryByRange)
	})
}
