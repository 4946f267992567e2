// Package api provides the HTTP API for the refal evaluation server: a
// bearer-secret exchanged for a short-lived JWT, a single evaluation
// endpoint that calls a goal function against the server's linked program,
// and an unauthenticated liveness check. Its shape — an API struct holding
// dependencies, an EndpointFunc/httpEndpoint wrapper doing panic recovery
// and response logging around each handler — follows the teacher's own
// server/api package.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/relang/refal/internal/render"
	"github.com/relang/refal/internal/runtime"
	"github.com/relang/refal/server/audit"
	"github.com/relang/refal/server/middle"
	"github.com/relang/refal/server/result"
	"github.com/relang/refal/server/serr"
)

const (
	// PathPrefix is the prefix of all paths in the API. Routers should mount
	// a sub-router that routes all requests to the API at this path.
	PathPrefix = "/api/v1"
)

// Evaluator calls a goal function, given by its module-qualified name and
// with no arguments, against a linked program, returning the flattened
// result sequence. *refal.Engine satisfies this.
type Evaluator interface {
	Eval(goalFunc string) ([]runtime.Object, error)
}

// API holds the dependencies the endpoints need. Create one and assign the
// result of its HTTP* methods as handlers to a router.
type API struct {
	// Engine evaluates goal functions against the server's linked program.
	Engine Evaluator

	// Audit records every evaluation request, success or failure. May be nil
	// to disable auditing.
	Audit *audit.Log

	// SecretHash is the bcrypt hash of the shared secret HTTPAuth compares
	// against. Empty disables the auth endpoint entirely.
	SecretHash string

	// JWTSigningKey signs tokens issued by HTTPAuth and validates tokens
	// presented to HTTPEval.
	JWTSigningKey []byte

	// UnauthDelay is the amount of time that a request will pause before
	// responding with an HTTP-401, HTTP-403, or HTTP-500, to deprioritize
	// such requests from processing and I/O.
	UnauthDelay time.Duration
}

// Router mounts the API's endpoints under PathPrefix on a chi router,
// gating HTTPEval behind a bearer-JWT check.
func (a API) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", a.HTTPHealthz())
	r.Post("/auth", a.HTTPAuth())

	r.Group(func(r chi.Router) {
		r.Use(middle.RequireAuth(a.JWTSigningKey, a.UnauthDelay))
		r.Post("/eval", a.HTTPEval())
	})

	return r
}

// EndpointFunc is the shape of a bare API handler; httpEndpoint adapts one
// into an http.HandlerFunc with panic recovery and logging around it.
type EndpointFunc func(req *http.Request) result.Result

func httpEndpoint(unauthDelay time.Duration, ep EndpointFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		defer panicTo500(w)
		r := ep(req)

		if err := r.PrepareMarshaledResponse(); err != nil {
			newResp := result.Err(r.Status, "An internal server error occurred", "could not marshal JSON response: "+err.Error())
			newResp.WriteResponse(w)
			return
		}

		if r.IsErr {
			logHttpResponse("ERROR", req, r.Status, r.InternalMsg)
		} else {
			logHttpResponse("INFO", req, r.Status, r.InternalMsg)
		}

		if r.Status == http.StatusUnauthorized || r.Status == http.StatusForbidden || r.Status == http.StatusInternalServerError {
			time.Sleep(unauthDelay)
		}

		r.WriteResponse(w)
	}
}

func panicTo500(w http.ResponseWriter) {
	if panicErr := recover(); panicErr != nil {
		result.TextErr(
			http.StatusInternalServerError,
			"An internal server error occurred",
			fmt.Sprintf("panic: %v\nSTACK TRACE: %s", panicErr, string(debug.Stack())),
		).WriteResponse(w)
	}
}

func logHttpResponse(level string, req *http.Request, respStatus int, msg string) {
	if len(level) > 5 {
		level = level[0:5]
	}
	for len(level) < 5 {
		level += " "
	}

	remoteAddrParts := strings.SplitN(req.RemoteAddr, ":", 2)
	remoteIP := remoteAddrParts[0]

	log.Printf("%s %s %s %s: HTTP-%d %s", level, remoteIP, req.Method, req.URL.Path, respStatus, msg)
}

// HTTPHealthz reports liveness; it requires no authentication.
func (a API) HTTPHealthz() http.HandlerFunc {
	return httpEndpoint(0, func(req *http.Request) result.Result {
		return result.OK(map[string]string{"status": "ok"})
	})
}

type authBody struct {
	Secret string `json:"secret"`
}

type authResponse struct {
	Token string `json:"token"`
}

// HTTPAuth exchanges the shared secret for a JWT bearer token good for one
// hour, the same HS512-with-issuer shape as the teacher's own token issuing.
func (a API) HTTPAuth() http.HandlerFunc {
	return httpEndpoint(a.UnauthDelay, func(req *http.Request) result.Result {
		if a.SecretHash == "" {
			return result.Forbidden("authentication is not enabled on this server")
		}

		var body authBody
		if err := parseJSON(req, &body); err != nil {
			return result.BadRequest(err.Error(), err)
		}

		if err := bcrypt.CompareHashAndPassword([]byte(a.SecretHash), []byte(body.Secret)); err != nil {
			return result.Unauthorized("incorrect secret", err)
		}

		now := time.Now()
		claims := jwt.MapClaims{
			"iss": middle.Issuer,
			"sub": "client",
			"iat": now.Unix(),
			"exp": now.Add(1 * time.Hour).Unix(),
		}
		tok := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
		signed, err := tok.SignedString(a.JWTSigningKey)
		if err != nil {
			return result.InternalServerError("sign token: %v", err)
		}

		return result.OK(authResponse{Token: signed})
	})
}

type evalBody struct {
	Goal string `json:"goal"`
}

type evalResponse struct {
	Result string `json:"result"`
}

// HTTPEval calls the goal function named in the request body against the
// server's linked program and returns its rendered result. Every request, successful
// or not, is recorded to a.Audit when set.
func (a API) HTTPEval() http.HandlerFunc {
	return httpEndpoint(a.UnauthDelay, func(req *http.Request) result.Result {
		var body evalBody
		if err := parseJSON(req, &body); err != nil {
			a.record(req, "", "", err)
			return result.BadRequest(err.Error(), err)
		}
		if strings.TrimSpace(body.Goal) == "" {
			err := fmt.Errorf("goal must not be empty")
			a.record(req, "", "", err)
			return result.BadRequest(err.Error())
		}

		objects, err := a.Engine.Eval(body.Goal)
		if err != nil {
			a.record(req, body.Goal, "", err)
			return result.Err(http.StatusUnprocessableEntity, err.Error(), "eval %q: %v", body.Goal, err)
		}

		rendered := render.Wrapped(objects, render.DefaultWidth)
		a.record(req, body.Goal, rendered, nil)
		return result.OK(evalResponse{Result: rendered})
	})
}

func (a API) record(req *http.Request, goal, res string, evalErr error) {
	if a.Audit == nil {
		return
	}
	errMsg := ""
	if evalErr != nil {
		errMsg = evalErr.Error()
	}
	if _, err := a.Audit.Record(req.Context(), goal, res, errMsg); err != nil {
		logHttpResponse("ERROR", req, 0, "record audit entry: "+err.Error())
	}
}

// v must be a pointer to a type. Will return error such that
// errors.Is(err, serr.ErrBodyUnmarshal) returns true if it is problem
// decoding the JSON itself.
func parseJSON(req *http.Request, v interface{}) error {
	contentType := req.Header.Get("Content-Type")

	if strings.ToLower(contentType) != "application/json" {
		return fmt.Errorf("request content-type is not application/json")
	}

	bodyData, err := io.ReadAll(req.Body)
	if err != nil {
		return fmt.Errorf("could not read request body: %w", err)
	}
	defer func() {
		req.Body.Close()
		req.Body = io.NopCloser(bytes.NewBuffer(bodyData))
	}()

	err = json.Unmarshal(bodyData, v)
	if err != nil {
		return serr.New("malformed JSON in request", err, serr.ErrBodyUnmarshal)
	}

	return nil
}
