package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (c *Controller) GetMux() http.Handler {
	r := chi.NewRouter()

	r.Use(c.requestIdMw)
	r.Use(c.requestLoggingMw)

	r.Get("/healthz", c.Healthz)
	r.Handle("/metrics", c.metricsHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/rooms", c.ListRooms)
		r.Post("/rooms", c.CreateRoom)
		r.Get("/rooms/{room-id}", c.GetRoom)
		r.Post("/rooms/{room-id}/join", c.JoinRoom)
		r.Delete("/rooms/{room-id}", c.DestroyRoom)
		r.HandleFunc("/ws", c.Websocket)
	})

	return r
}
