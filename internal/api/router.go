package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/anshulj/papershelf/internal/api/handlers"
	"github.com/anshulj/papershelf/internal/api/middleware"
	"github.com/anshulj/papershelf/internal/index"
	"github.com/anshulj/papershelf/internal/ingest"
	"github.com/anshulj/papershelf/internal/search"
)

type Router struct {
	mux   *chi.Mux
	db    *pgxpool.Pool
	redis *redis.Client
	coord *ingest.Coordinator
	idx   *index.Index
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, coord *ingest.Coordinator, idx *index.Index) *Router {
	return &Router{
		mux:   chi.NewRouter(),
		db:    db,
		redis: rdb,
		coord: coord,
		idx:   idx,
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(100, 200)
	r.Use(rl.Limit)

	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	docH := handlers.NewDocumentHandler(rt.coord)
	searchH := handlers.NewSearchHandler(rt.idx, search.NewEngine(rt.idx.Schema()))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", docH.Upload)
			r.Get("/", docH.List)
			r.Get("/{id}/file", docH.Download)
			r.Delete("/{id}", docH.Delete)
		})

		r.Get("/search", searchH.Search)
	})

	return r
}
