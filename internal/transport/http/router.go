package http

import (
	"net/http"
	"time"

	httpmw "github.com/sawariz0r/3d-voice-room/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Deps struct {
	Handler *Handler
	// WS is mounted outside the logging and timeout middleware, which would
	// otherwise wrap the writer the upgrader needs to hijack.
	WS             http.HandlerFunc
	Verifier       httpmw.TokenVerifier
	AllowedOrigins []string
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	if d.WS != nil {
		r.Get("/ws", d.WS)
	}

	r.Group(func(gr chi.Router) {
		gr.Use(httpmw.RequestLogger)
		gr.Use(middleware.Timeout(30 * time.Second))

		gr.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})

		gr.Route("/rooms", func(rm chi.Router) {
			rm.Get("/", d.Handler.ListRooms)
			rm.Route("/{id}", func(rr chi.Router) {
				rr.Get("/", d.Handler.GetRoom)
				rr.Group(func(pr chi.Router) {
					if d.Verifier != nil {
						pr.Use(httpmw.BearerAuth(d.Verifier))
					}
					pr.Get("/history", d.Handler.History)
				})
			})
		})
	})

	return r
}
