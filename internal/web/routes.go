package web

import (
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/face-graph/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	facesHandler := handlers.NewFacesHandler(s.engine, s.log)
	componentsHandler := handlers.NewComponentsHandler(s.engine, s.log)
	peopleHandler := handlers.NewPeopleHandler(s.engine, s.log)
	statsHandler := handlers.NewStatsHandler(s.engine)
	clusteringHandler := handlers.NewClusteringHandler(s.config, s.engine.Table(), s.jobManager, s.log)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.HealthCheck)

		// SSE streams are exempt from the request timeout
		r.Get("/clustering/{jobId}/events", clusteringHandler.Events)

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(time.Minute))

			r.Get("/stats", statsHandler.Get)

			// Faces
			r.Get("/faces/random", facesHandler.Random)
			r.Get("/faces/{id}", facesHandler.Get)
			r.Get("/faces/{id}/similar", facesHandler.Similar)
			r.Get("/faces/{id}/crop", facesHandler.Crop)

			// Components
			r.Get("/components/random-unassigned", componentsHandler.RandomUnassigned)
			r.Get("/components/{id}", componentsHandler.Get)
			r.Get("/components/{id}/compare/{otherId}", componentsHandler.Compare)
			r.Get("/components/{id}/subdivision", componentsHandler.ProposeSubdivision)
			r.Post("/components/{id}/subdivision", componentsHandler.SubmitSubdivision)
			r.Put("/components/{id}/person", componentsHandler.AssignPerson)
			r.Delete("/components/{id}/person", componentsHandler.UnassignPerson)

			// People
			r.Get("/people", peopleHandler.List)
			r.Post("/people", peopleHandler.Create)
			r.Get("/people/search", peopleHandler.Search)
			r.Put("/people/{id}", peopleHandler.Update)
			r.Delete("/people/{id}", peopleHandler.Delete)
			r.Get("/people/{id}/components", peopleHandler.Components)

			// Incremental clustering (long-running)
			r.Post("/clustering", clusteringHandler.Start)
			r.Get("/clustering/{jobId}", clusteringHandler.Status)
			r.Delete("/clustering/{jobId}", clusteringHandler.Cancel)
		})
	})
}
