package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"github.com/dmitrijs2005/fieldsync/internal/client/client"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
	"github.com/dmitrijs2005/fieldsync/internal/models"
	"github.com/dmitrijs2005/fieldsync/internal/server/auth"
	"github.com/dmitrijs2005/fieldsync/internal/server/repositories/referentials"
	"github.com/dmitrijs2005/fieldsync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fieldsync/internal/server/services"
)

const testSecret = "secret"

func newTestServer(t *testing.T) *GRPCServer {
	t.Helper()
	cs := services.NewCalendarService(repomanager.NewMemoryRepositoryManager())
	require.NoError(t, cs.Seed(context.Background(), referentials.Seed{
		Programs: []*models.Program{{
			Entity:            models.Entity{ID: 1},
			Label:             "SIH-ACTIFLOT",
			AcquisitionLevels: []string{models.AcquisitionLevelActivityCalendar},
		}},
		Referentials: []*models.Referential{{Entity: models.Entity{ID: 12}, EntityName: "Gear", Label: "OTB"}},
		Vessels:      []*models.VesselSnapshot{{Entity: models.Entity{ID: 10}, Name: "Alcyon"}},
	}))
	return NewGRPCServer("127.0.0.1:0", logging.NewNopLogger(), cs, testSecret)
}

func token(t *testing.T, operator string, validity time.Duration) string {
	t.Helper()
	tok, err := auth.GenerateToken(operator, []byte(testSecret), validity)
	require.NoError(t, err)
	return tok
}

// serveBufconn starts s on an in-memory listener and returns a dialer for it.
func serveBufconn(t *testing.T, s *GRPCServer) grpc.DialOption {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, lis) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})
}

func newTransport(t *testing.T, dialer grpc.DialOption, accessToken string) *client.GRPCClient {
	t.Helper()
	c, err := client.NewGRPCClient("passthrough:///bufnet",
		client.WithAccessToken(accessToken),
		client.WithDialOptions(dialer),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func newCalendar() *models.Calendar {
	return &models.Calendar{
		Year:     2024,
		Program:  &models.ReferentialRef{ID: 1, Label: "SIH-ACTIFLOT"},
		VesselID: 10,
		VesselUseFeatures: []*models.VesselUseFeatures{
			{StartDate: "2024-01-01", EndDate: "2024-01-31", IsActive: 1},
		},
	}
}
