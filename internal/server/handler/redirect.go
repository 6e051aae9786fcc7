package handler

import (
	"net/http"

	"github.com/garrettladley/settle/internal/settle"
	"github.com/garrettladley/settle/internal/xerrors"
	"github.com/garrettladley/settle/internal/xhttp"
	"github.com/garrettladley/settle/internal/xslog"
)

const queryParamSessionID = "session_id"

type Redirect struct {
	engine *settle.Engine
}

func NewRedirect(engine *settle.Engine) *Redirect {
	return &Redirect{engine: engine}
}

type redirectResponse struct {
	Status string `json:"status"`
}

// HandleReturn handles GET /payments/return requests, the synchronous
// checkout-return confirmation. Failures all collapse to one generic
// message: the shopper cannot act on the distinction, and the details are
// in the logs.
func (h *Redirect) HandleReturn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := xslog.FromContext(ctx)

	sessionID := r.URL.Query().Get(queryParamSessionID)
	if sessionID == "" {
		xerrors.WriteError(ctx, w, xerrors.BadRequest(xerrors.WithMessage("missing session_id")))
		return
	}

	result, err := h.engine.ProcessRedirect(ctx, sessionID)
	if err != nil {
		logger.ErrorContext(ctx, "redirect confirmation failed", xslog.Error(err))
		xerrors.WriteError(ctx, w, xerrors.BadRequest(xerrors.WithMessage("could not verify payment")))
		return
	}

	if result.Outcome.Kind != settle.KindPaid {
		logger.WarnContext(ctx, "redirect confirmation rejected", xslog.Outcome(result.Outcome.String()))
		xerrors.WriteError(ctx, w, xerrors.BadRequest(xerrors.WithMessage("could not verify payment")))
		return
	}

	xhttp.WriteOK(w, redirectResponse{Status: "paid"})
}
