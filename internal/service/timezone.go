package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"power_schedule/internal/models"
	"power_schedule/internal/repository"

	"github.com/samber/lo"
)

type TimeZoneService struct {
	repo repository.TimeZoneRepo
}

func NewTimeZoneService(repo repository.TimeZoneRepo) *TimeZoneService {
	return &TimeZoneService{repo: repo}
}

func (s *TimeZoneService) List(ctx context.Context) ([]models.TimeZone, error) {
	return s.repo.List(ctx)
}

// Seed makes sure every name is stored. Names must be valid IANA zones.
func (s *TimeZoneService) Seed(ctx context.Context, names []string) error {
	names = lo.Uniq(lo.Compact(lo.Map(names, func(n string, _ int) string {
		return strings.TrimSpace(n)
	})))
	for _, name := range names {
		if _, err := time.LoadLocation(name); err != nil {
			return fmt.Errorf("%w: %q", ErrUnknownTimeZone, name)
		}
	}
	for _, name := range names {
		if _, err := s.repo.Ensure(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// Location resolves timezone id to a loaded location.
func (s *TimeZoneService) Location(ctx context.Context, id int) (*time.Location, error) {
	tz, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tz == nil {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownTimeZone, id)
	}
	loc, err := time.LoadLocation(tz.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTimeZone, tz.Name)
	}
	return loc, nil
}
