package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"warden/internal/trust"
	"warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/testutil"
)

type fakeEvaluator struct {
	ev  trust.Evaluation
	err error
}

func (f *fakeEvaluator) Evaluate(_ context.Context, _ trust.EvaluateRequest) (trust.Evaluation, error) {
	return f.ev, f.err
}

type HandlerSuite struct {
	suite.Suite
}

func (s *HandlerSuite) router(e Evaluator) chi.Router {
	r := chi.NewRouter()
	New(e, nil).Register(r)
	return r
}

func (s *HandlerSuite) TestEvaluateOK() {
	userID := domain.NewUserID()
	r := s.router(&fakeEvaluator{ev: trust.Evaluation{
		UserID: userID,
		Score:  72,
		Level:  trust.LevelGold,
	}})

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/trust/evaluate", trust.EvaluateRequest{
		UserID: userID,
		Email:  "jane.doe@gmail.com",
	})
	rr := testutil.DoRequest(r, req)

	s.Equal(http.StatusOK, rr.Code)
	out := testutil.DecodeJSON[trust.Evaluation](s.T(), rr)
	s.Equal(72, out.Score)
	s.Equal(trust.LevelGold, out.Level)
}

func (s *HandlerSuite) TestEvaluateServiceError() {
	r := s.router(&fakeEvaluator{err: dErrors.New(dErrors.CodeInvalidInput, "user_id is required")})

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/trust/evaluate", map[string]string{})
	rr := testutil.DoRequest(r, req)

	s.Equal(http.StatusBadRequest, rr.Code)
}

func (s *HandlerSuite) TestEvaluateMalformedBody() {
	r := s.router(&fakeEvaluator{})

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/trust/evaluate", nil)
	req.Body = http.NoBody
	rr := testutil.DoRequest(r, req)

	s.Equal(http.StatusBadRequest, rr.Code)
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}
