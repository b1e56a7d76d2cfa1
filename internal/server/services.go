package server

import (
	"fmt"
	"log/slog"

	"github.com/sakif/aisolutions-cms/internal/auth"
	"github.com/sakif/aisolutions-cms/internal/config"
	"github.com/sakif/aisolutions-cms/internal/model"
	"github.com/sakif/aisolutions-cms/internal/repository/sqlite"
	"github.com/sakif/aisolutions-cms/internal/service"
	"github.com/sakif/aisolutions-cms/internal/upload"
)

// NewServices builds every service over one connected DB.
//
// DEPENDENCY CHAIN:
//
//	sqlite.DB → sqlite.Collection[T] → service.Resource[T] → handler.ResourceHandler[T]
//
// The handler never touches the database directly and the service never
// touches HTTP. passwords may be nil (production bcrypt cost).
func NewServices(
	cfg *config.Config,
	db *sqlite.DB,
	blacklist service.TokenBlacklist,
	passwords *auth.PasswordService,
	files *upload.Store,
	logger *slog.Logger,
) (Services, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return Services{}, fmt.Errorf("creating token service: %w", err)
	}
	if passwords == nil {
		passwords = auth.NewPasswordService()
	}

	events := sqlite.NewCollection[model.Event](db, sqlite.CollectionSpec{Table: sqlite.TableEvents, Resource: "event", UniqueKey: "slug"})

	return Services{
		Auth: service.NewAuthService(sqlite.NewAdmins(db), tokens, passwords, blacklist, logger),
		Contacts: service.NewContactService(
			sqlite.NewCollection[model.Contact](db, sqlite.CollectionSpec{Table: sqlite.TableContacts, Resource: "contact"}),
			logger),
		Feedback: service.NewFeedbackService(
			sqlite.NewCollection[model.Feedback](db, sqlite.CollectionSpec{Table: sqlite.TableFeedback, Resource: "feedback"}),
			logger),
		Articles: service.NewArticleService(
			sqlite.NewCollection[model.Article](db, sqlite.CollectionSpec{Table: sqlite.TableArticles, Resource: "article", UniqueKey: "slug"}),
			service.ArticleOptions{WordsPerMinute: cfg.WordsPerMinute},
			logger),
		Events: service.NewEventService(events, logger),
		Registrations: service.NewRegistrationService(
			sqlite.NewCollection[model.EventRegistration](db, sqlite.CollectionSpec{Table: sqlite.TableEventRegistrations, Resource: "registration", UniqueKey: "event and email"}),
			events, logger),
		Projects: service.NewProjectService(
			sqlite.NewCollection[model.Project](db, sqlite.CollectionSpec{Table: sqlite.TableProjects, Resource: "project", UniqueKey: "slug"}),
			logger),
		Solutions: service.NewSolutionService(
			sqlite.NewCollection[model.Solution](db, sqlite.CollectionSpec{Table: sqlite.TableSolutions, Resource: "solution", UniqueKey: "slug"}),
			logger),
		Gallery: service.NewGalleryService(
			sqlite.NewCollection[model.GalleryItem](db, sqlite.CollectionSpec{Table: sqlite.TableGallery, Resource: "gallery item"}),
			files, logger),
		Files: files,
		DB:    db,
	}, nil
}
