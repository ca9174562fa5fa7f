package connect

import (
	"context"
	"strings"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"

	"github.com/osa030/loopify/internal/domain/media"
)

// Client calls a ControlService.
type Client struct {
	commands  map[media.Command]*connect.Client[Empty, CommandResponse]
	setLoop   *connect.Client[SetLoopRequest, Loop]
	getLoop   *connect.Client[Empty, Loop]
	getStatus *connect.Client[Empty, StatusResponse]
	songInfo  *connect.Client[Empty, SongInfoResponse]
}

// NewClient creates a client for the server at baseURL. token is sent as
// the admin token when non-empty.
func NewClient(httpClient connect.HTTPClient, baseURL, token string) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts := []connect.ClientOption{
		connect.WithCodec(jsonCodec{}),
		connect.WithInterceptors(newTokenInterceptor(token)),
	}

	c := &Client{
		commands:  make(map[media.Command]*connect.Client[Empty, CommandResponse], len(commandProcedures)),
		setLoop:   connect.NewClient[SetLoopRequest, Loop](httpClient, baseURL+ControlServiceSetLoopProcedure, opts...),
		getLoop:   connect.NewClient[Empty, Loop](httpClient, baseURL+ControlServiceGetLoopProcedure, opts...),
		getStatus: connect.NewClient[Empty, StatusResponse](httpClient, baseURL+ControlServiceGetStatusProcedure, opts...),
		songInfo:  connect.NewClient[Empty, SongInfoResponse](httpClient, baseURL+ControlServiceSongInfoProcedure, opts...),
	}
	for cmd, procedure := range commandProcedures {
		c.commands[cmd] = connect.NewClient[Empty, CommandResponse](httpClient, baseURL+procedure, opts...)
	}
	return c
}

// Execute issues a media command.
func (c *Client) Execute(ctx context.Context, cmd media.Command) error {
	client, ok := c.commands[cmd]
	if !ok {
		return errors.Newf("unknown command: %d", int(cmd))
	}
	_, err := client.CallUnary(ctx, connect.NewRequest(&Empty{}))
	return err
}

// SetLoop applies a partial loop update and returns the result.
func (c *Client) SetLoop(ctx context.Context, req *SetLoopRequest) (*Loop, error) {
	resp, err := c.setLoop.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// GetLoop returns the loop configuration.
func (c *Client) GetLoop(ctx context.Context) (*Loop, error) {
	resp, err := c.getLoop.CallUnary(ctx, connect.NewRequest(&Empty{}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// GetStatus returns the loop configuration and watcher phase.
func (c *Client) GetStatus(ctx context.Context) (*StatusResponse, error) {
	resp, err := c.getStatus.CallUnary(ctx, connect.NewRequest(&Empty{}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// SongInfo returns the current track, or nil when nothing is playing.
func (c *Client) SongInfo(ctx context.Context) (*Track, error) {
	resp, err := c.songInfo.CallUnary(ctx, connect.NewRequest(&Empty{}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.Track, nil
}
