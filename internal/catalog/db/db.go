package db

import (
	"context"
	"database/sql"
	"errors"

	"ms-booking/internal/apperror"
	"ms-booking/internal/models"

	"github.com/uptrace/bun"
)

// DB is the catalog store. Listings are read-only from the booking flow.
type DB struct {
	Bun bun.IDB
}

func (d *DB) FindServiceByID(ctx context.Context, id string) (*models.Service, error) {
	var service models.Service
	err := d.Bun.NewSelect().
		Model(&service).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.CatalogItemNotFound("service", id)
	}
	if err != nil {
		return nil, err
	}
	return &service, nil
}

func (d *DB) FindTicketByID(ctx context.Context, id string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.CatalogItemNotFound("ticket", id)
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (d *DB) FindRoomByID(ctx context.Context, id string) (*models.Room, error) {
	var room models.Room
	err := d.Bun.NewSelect().
		Model(&room).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.CatalogItemNotFound("room", id)
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (d *DB) FindProvinceByCode(ctx context.Context, code string) (*models.Province, error) {
	var province models.Province
	err := d.Bun.NewSelect().
		Model(&province).
		Where("code = ?", code).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.CatalogItemNotFound("province", code)
	}
	if err != nil {
		return nil, err
	}
	return &province, nil
}

func (d *DB) ListTicketsByService(ctx context.Context, serviceID string) ([]models.Ticket, error) {
	tickets := []models.Ticket{}
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("service_id = ?", serviceID).
		Order("name").
		Scan(ctx)
	return tickets, err
}

func (d *DB) ListRoomsByService(ctx context.Context, serviceID string) ([]models.Room, error) {
	rooms := []models.Room{}
	err := d.Bun.NewSelect().
		Model(&rooms).
		Where("service_id = ?", serviceID).
		Order("name").
		Scan(ctx)
	return rooms, err
}

// GetServiceDetails assembles a service with its tickets and rooms.
func (d *DB) GetServiceDetails(ctx context.Context, id string) (*models.ServiceDetails, error) {
	service, err := d.FindServiceByID(ctx, id)
	if err != nil {
		return nil, err
	}
	tickets, err := d.ListTicketsByService(ctx, id)
	if err != nil {
		return nil, err
	}
	rooms, err := d.ListRoomsByService(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.ServiceDetails{Service: *service, Tickets: tickets, Rooms: rooms}, nil
}
