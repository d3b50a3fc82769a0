/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

// go-pulser API
//
// RESTful APIs to interact with the go-pulser control server
//
// Schemes: http
// Host: localhost:8010
// Version: 1.0.0
//
//	Consumes:
//	- application/json
//
//	Produces:
//	- application/json
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"jinr.ru/greenlab/go-pulser/pkg/config"
	"jinr.ru/greenlab/go-pulser/pkg/log"
	"jinr.ru/greenlab/go-pulser/pkg/pulser"
	"jinr.ru/greenlab/go-pulser/pkg/srv/control/ifc"
)

type ApiServer struct {
	context.Context
	*config.Config
	*mux.Router
	ctrl ifc.ControlServer
}

var _ ifc.ApiServer = &ApiServer{}

func NewApiServer(ctx context.Context, cfg *config.Config, ctrl ifc.ControlServer) (ifc.ApiServer, error) {
	log.Info("Initializing API server with address: %s port: %d", cfg.IP, cfg.ApiPort)

	s := &ApiServer{
		Context: ctx,
		Config:  cfg,
		ctrl:    ctrl,
	}
	s.configureRouter()
	return s, nil
}

// Run ...
func (s *ApiServer) Run() error {
	log.Info("Starting API server: address: %s port: %d", s.Config.IP, s.Config.ApiPort)
	httpServer := &http.Server{
		Handler: s.Handler(),
		Addr:    fmt.Sprintf("%s:%d", s.Config.IP, s.Config.ApiPort),
	}
	go func() {
		<-s.Done()
		httpServer.Close()
	}()
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Handler returns the router wrapped into request logging and panic recovery.
func (s *ApiServer) Handler() http.Handler {
	recovery := handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))
	return recovery(handlers.LoggingHandler(log.Writer(), s.Router))
}

func (s *ApiServer) configureRouter() {
	s.Router = mux.NewRouter()
	subRouter := s.Router.PathPrefix("/api").Subrouter()
	subRouter.HandleFunc("/pulse/{id:[0-9]+}", s.handlePulseGet()).Methods("GET")
	subRouter.HandleFunc("/pulse/{id:[0-9]+}/{op:shift|increment|position|length|dpos|dlen}", s.handlePulseOp()).Methods("POST")
	subRouter.HandleFunc("/reset", s.handleReset()).Methods("POST")
	subRouter.HandleFunc("/reset/{id:[0-9]+}", s.handleReset()).Methods("POST")
	subRouter.HandleFunc("/phase/{op:next|reset}", s.handlePhase()).Methods("POST")
	subRouter.HandleFunc("/update", s.handleUpdate()).Methods("POST")
	subRouter.HandleFunc("/{action:run|stop}", s.handleRun()).Methods("POST")
	subRouter.HandleFunc("/seq", s.handleSeq()).Methods("GET")
	subRouter.HandleFunc("/status", s.handleStatus()).Methods("GET")
}

// httpStatus maps pulser error codes to response codes. Rejected changes
// are reported as conflicts, the running sequence is unchanged then.
func httpStatus(err error) int {
	var perr *pulser.Error
	if errors.As(err, &perr) {
		switch {
		case perr.Code == pulser.CodeUnknownPulse:
			return http.StatusNotFound
		case perr.Code == pulser.CodeTransport, perr.Code == pulser.CodeCancelled:
			return http.StatusBadGateway
		case perr.Kind == pulser.Recoverable:
			return http.StatusConflict
		}
		return http.StatusBadRequest
	}
	switch err.(type) {
	case ErrUnknownOperation:
		return http.StatusBadRequest
	case ErrNoSequence, ErrGenerationNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Can not encode response: %s", err)
	}
}

func pulseID(vars map[string]string) (int, error) {
	return strconv.Atoi(vars["id"])
}

func (s *ApiServer) handlePulseGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		log.Debug("Handling pulse get request: pulse: %s", vars["id"])

		id, err := pulseID(vars)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		info, err := s.ctrl.GetPulse(id)
		if err != nil {
			http.Error(w, err.Error(), httpStatus(err))
			return
		}
		writeJSON(w, info)
	}
}

func (s *ApiServer) handlePulseOp() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		log.Debug("Handling pulse request: pulse: %s op: %s", vars["id"], vars["op"])

		id, err := pulseID(vars)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		value := &ifc.PulseValue{}
		switch vars["op"] {
		case ifc.OpShift, ifc.OpIncrement:
		default:
			if err := json.NewDecoder(r.Body).Decode(value); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		info, err := s.ctrl.PulseOp(id, vars["op"], value.Value)
		if err != nil {
			http.Error(w, err.Error(), httpStatus(err))
			return
		}
		writeJSON(w, info)
	}
}

func (s *ApiServer) handleReset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		var ids []int
		if _, ok := vars["id"]; ok {
			id, err := pulseID(vars)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			ids = append(ids, id)
		}
		log.Debug("Handling reset request: pulses: %v", ids)
		if err := s.ctrl.Reset(ids...); err != nil {
			http.Error(w, err.Error(), httpStatus(err))
		}
	}
}

func (s *ApiServer) handlePhase() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		req := &ifc.PhaseRequest{}
		if err := json.NewDecoder(r.Body).Decode(req); err != nil && err != io.EOF {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Debug("Handling phase request: op: %s functions: %v", vars["op"], req.Functions)

		var fns []pulser.Function
		for _, name := range req.Functions {
			f, err := pulser.ParseFunction(name)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			fns = append(fns, f)
		}
		if err := s.ctrl.Phase(vars["op"], fns...); err != nil {
			http.Error(w, err.Error(), httpStatus(err))
		}
	}
}

func (s *ApiServer) handleUpdate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling update request")
		sum, err := s.ctrl.Update()
		if err != nil {
			http.Error(w, err.Error(), httpStatus(err))
			return
		}
		writeJSON(w, sum)
	}
}

func (s *ApiServer) handleRun() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		log.Debug("Handling run request: action: %s", vars["action"])
		var err error
		switch vars["action"] {
		case "run":
			err = s.ctrl.SetRunning(true)
		case "stop":
			err = s.ctrl.SetRunning(false)
		default:
			err = ErrUnknownOperation{What: vars["action"]}
		}
		if err != nil {
			http.Error(w, err.Error(), httpStatus(err))
		}
	}
}

func (s *ApiServer) handleSeq() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sum, err := s.ctrl.LastSequence()
		if err != nil {
			http.Error(w, err.Error(), httpStatus(err))
			return
		}
		writeJSON(w, sum)
	}
}

func (s *ApiServer) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := s.ctrl.Status()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, status)
	}
}
