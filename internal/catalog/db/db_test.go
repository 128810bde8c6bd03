package db_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"ms-booking/internal/apperror"
	catalogdb "ms-booking/internal/catalog/db"
	"ms-booking/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) (*catalogdb.DB, *bun.DB) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	ctx := context.Background()
	for _, model := range []interface{}{(*models.Province)(nil), (*models.Service)(nil), (*models.Ticket)(nil), (*models.Room)(nil)} {
		_, err := bunDB.NewCreateTable().Model(model).Exec(ctx)
		require.NoError(t, err)
	}

	t.Cleanup(func() { bunDB.Close() })
	return &catalogdb.DB{Bun: bunDB}, bunDB
}

func seed(t *testing.T, bunDB *bun.DB) {
	ctx := context.Background()
	_, err := bunDB.NewInsert().Model(&models.Province{Code: "48", Name: "Da Nang"}).Exec(ctx)
	require.NoError(t, err)
	_, err = bunDB.NewInsert().Model(&models.Service{ID: "svc-1", ServiceName: "Riverside", ProvinceCode: "48", ServiceType: models.ServiceTypeHotel}).Exec(ctx)
	require.NoError(t, err)
	_, err = bunDB.NewInsert().Model(&models.Room{ID: "room-1", ServiceID: "svc-1", Name: "Deluxe", Price: decimal.NewFromInt(200), Quantity: 3}).Exec(ctx)
	require.NoError(t, err)
	_, err = bunDB.NewInsert().Model(&models.Ticket{ID: "tkt-1", ServiceID: "svc-1", Name: "Spa pass", Price: decimal.RequireFromString("49.50")}).Exec(ctx)
	require.NoError(t, err)
}

func TestFindByID(t *testing.T) {
	store, bunDB := setupTestDB(t)
	seed(t, bunDB)
	ctx := context.Background()

	ticket, err := store.FindTicketByID(ctx, "tkt-1")
	require.NoError(t, err)
	assert.True(t, ticket.Price.Equal(decimal.RequireFromString("49.5")))

	room, err := store.FindRoomByID(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, "svc-1", room.ServiceID)
	assert.True(t, room.Price.Equal(decimal.NewFromInt(200)))

	service, err := store.FindServiceByID(ctx, "svc-1")
	require.NoError(t, err)
	assert.Equal(t, models.ServiceTypeHotel, service.ServiceType)

	province, err := store.FindProvinceByCode(ctx, "48")
	require.NoError(t, err)
	assert.Equal(t, "Da Nang", province.Name)
}

func TestFindMissingItemNamesID(t *testing.T) {
	store, _ := setupTestDB(t)
	ctx := context.Background()

	_, err := store.FindTicketByID(ctx, "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrCatalogItemNotFound))
	assert.Contains(t, err.Error(), "ticket nope")

	_, err = store.FindRoomByID(ctx, "nope")
	assert.True(t, errors.Is(err, apperror.ErrCatalogItemNotFound))

	_, err = store.FindServiceByID(ctx, "nope")
	assert.True(t, errors.Is(err, apperror.ErrCatalogItemNotFound))
}

func TestGetServiceDetails(t *testing.T) {
	store, bunDB := setupTestDB(t)
	seed(t, bunDB)

	details, err := store.GetServiceDetails(context.Background(), "svc-1")
	require.NoError(t, err)
	assert.Equal(t, "Riverside", details.Service.ServiceName)
	assert.Len(t, details.Tickets, 1)
	assert.Len(t, details.Rooms, 1)
}
