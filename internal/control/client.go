package control

import (
	"context"
	"errors"

	"NetSentinel/internal/model"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls the ModelControl service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an existing connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Dial opens an insecure connection to addr.
func Dial(addr string) (*Client, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, err
	}
	return NewClient(conn), conn, nil
}

// StartTraining activates baseline collection. It returns
// model.ErrAlreadyCollecting when training is already running.
func (c *Client) StartTraining(ctx context.Context) (string, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, startTrainingMethod, &emptypb.Empty{}, out); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return "", model.ErrAlreadyCollecting
		}
		return "", err
	}
	return out.GetFields()["message"].GetStringValue(), nil
}

// Status fetches the model status.
func (c *Client) Status(ctx context.Context) (model.ModelStatus, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, statusMethod, &emptypb.Empty{}, out); err != nil {
		return model.ModelStatus{}, err
	}
	f := out.GetFields()
	if f == nil {
		return model.ModelStatus{}, errors.New("empty status response")
	}
	return model.ModelStatus{
		IsTrained:  f["is_trained"].GetBoolValue(),
		IsTraining: f["is_training"].GetBoolValue(),
		Collected:  int(f["collected"].GetNumberValue()),
		Target:     int(f["target"].GetNumberValue()),
	}, nil
}
