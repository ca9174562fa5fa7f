// Package connect provides the Connect RPC binding of the control surface.
// Messages are plain Go structs carried with a JSON codec.
package connect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"

	"github.com/osa030/loopify/internal/app/control"
	"github.com/osa030/loopify/internal/domain/loop"
	"github.com/osa030/loopify/internal/domain/media"
)

// ControlServiceName is the fully-qualified name of the service.
const ControlServiceName = "loopify.v1.ControlService"

// Procedure paths.
const (
	ControlServicePlayPauseProcedure  = "/" + ControlServiceName + "/PlayPause"
	ControlServiceNextProcedure       = "/" + ControlServiceName + "/Next"
	ControlServicePrevProcedure       = "/" + ControlServiceName + "/Prev"
	ControlServiceVolumeUpProcedure   = "/" + ControlServiceName + "/VolumeUp"
	ControlServiceVolumeDownProcedure = "/" + ControlServiceName + "/VolumeDown"
	ControlServiceMuteProcedure       = "/" + ControlServiceName + "/Mute"
	ControlServiceSetLoopProcedure    = "/" + ControlServiceName + "/SetLoop"
	ControlServiceGetLoopProcedure    = "/" + ControlServiceName + "/GetLoop"
	ControlServiceGetStatusProcedure  = "/" + ControlServiceName + "/GetStatus"
	ControlServiceSongInfoProcedure   = "/" + ControlServiceName + "/SongInfo"
)

var commandProcedures = map[media.Command]string{
	media.PlayPause:  ControlServicePlayPauseProcedure,
	media.Next:       ControlServiceNextProcedure,
	media.Prev:       ControlServicePrevProcedure,
	media.VolumeUp:   ControlServiceVolumeUpProcedure,
	media.VolumeDown: ControlServiceVolumeDownProcedure,
	media.Mute:       ControlServiceMuteProcedure,
}

// ControlService implements the ControlService RPC.
type ControlService struct {
	svc *control.Service
}

// NewControlService creates a new ControlService.
func NewControlService(svc *control.Service) *ControlService {
	return &ControlService{svc: svc}
}

// NewControlServiceHandler builds an HTTP handler serving every procedure
// of s. It returns the path prefix to mount the handler on.
func NewControlServiceHandler(s *ControlService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	for cmd, procedure := range commandProcedures {
		mux.Handle(procedure, connect.NewUnaryHandler(procedure, s.command(cmd), opts...))
	}
	mux.Handle(ControlServiceSetLoopProcedure, connect.NewUnaryHandler(ControlServiceSetLoopProcedure, s.SetLoop, opts...))
	mux.Handle(ControlServiceGetLoopProcedure, connect.NewUnaryHandler(ControlServiceGetLoopProcedure, s.GetLoop, opts...))
	mux.Handle(ControlServiceGetStatusProcedure, connect.NewUnaryHandler(ControlServiceGetStatusProcedure, s.GetStatus, opts...))
	mux.Handle(ControlServiceSongInfoProcedure, connect.NewUnaryHandler(ControlServiceSongInfoProcedure, s.SongInfo, opts...))
	return "/" + ControlServiceName + "/", mux
}

func (s *ControlService) command(cmd media.Command) func(context.Context, *connect.Request[Empty]) (*connect.Response[CommandResponse], error) {
	return func(ctx context.Context, _ *connect.Request[Empty]) (*connect.Response[CommandResponse], error) {
		if err := s.svc.Execute(ctx, cmd); err != nil {
			return nil, connect.NewError(connect.CodeUnavailable, err)
		}
		return connect.NewResponse(&CommandResponse{Success: true, Command: cmd.String()}), nil
	}
}

// SetLoop applies a partial loop update.
func (s *ControlService) SetLoop(
	ctx context.Context,
	req *connect.Request[SetLoopRequest],
) (*connect.Response[Loop], error) {
	cfg, err := s.svc.SetLoop(req.Msg.patch())
	if err != nil {
		if errors.Is(err, loop.ErrInvalidConfiguration) {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(newLoop(cfg)), nil
}

// GetLoop returns the loop configuration.
func (s *ControlService) GetLoop(
	ctx context.Context,
	_ *connect.Request[Empty],
) (*connect.Response[Loop], error) {
	return connect.NewResponse(newLoop(s.svc.GetLoop())), nil
}

// GetStatus returns the loop configuration and watcher phase.
func (s *ControlService) GetStatus(
	ctx context.Context,
	_ *connect.Request[Empty],
) (*connect.Response[StatusResponse], error) {
	cfg, phase := s.svc.GetStatus()
	return connect.NewResponse(&StatusResponse{
		Loop:  newLoop(cfg),
		Phase: phase.String(),
	}), nil
}

// SongInfo returns the current track.
func (s *ControlService) SongInfo(
	ctx context.Context,
	_ *connect.Request[Empty],
) (*connect.Response[SongInfoResponse], error) {
	return connect.NewResponse(&SongInfoResponse{Track: newTrack(s.svc.SongInfo(ctx))}), nil
}
