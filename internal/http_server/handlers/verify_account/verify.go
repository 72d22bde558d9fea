package verifyAccount

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"account_service/internal/account"
	resp "account_service/internal/lib/api/response"
	sl "account_service/internal/lib/logger"
	"account_service/internal/models"
)

type Request struct {
	OTP string `json:"otp" validate:"required"`
}

type Response struct {
	resp.Response
	User        models.PublicUser `json:"user"`
	AccessToken string            `json:"access_token"`
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	accounts *account.Account,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.verifyAccount.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		result, err := accounts.VerifyAccount(ctx, req.OTP)
		if err != nil {
			if errors.Is(err, account.ErrInvalidCode) {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Your token is either expired or invalid."))

				return
			}

			log.Error("failed to verify account", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("account verified", slog.String("uid", result.User.ID.String()))

		render.JSON(w, r, Response{
			Response:    resp.OK(),
			User:        result.User.Public(),
			AccessToken: result.AccessToken,
		})
	}
}
