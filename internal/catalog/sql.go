package catalog

import (
	"aquasync/pkg/domain"
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
)

// Compile-time contract assertion ensuring SQLSource adheres to the catalog interface.
var _ domain.CatalogSource = (*SQLSource)(nil)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// columns lists the catalog table columns in scan order.
var columns = []string{
	"name", "water_type", "temperature_range", "ph_range", "hardness_range",
	"temperament", "social_behavior", "tank_zone", "max_size_cm", "activity_level",
	"fin_vulnerability", "fin_nipper", "schooling_min_number", "territorial_space_cm",
	"special_diet", "diet", "care_level", "minimum_tank_liters", "accepted_feeds",
	"portion_grams", "feedings_per_day",
}

// SQLSource reads species from a catalog table owned by another system.
// accepted_feeds is a comma-separated text column.
type SQLSource struct {
	db          *sql.DB
	table       string
	placeholder string
}

// NewSQLSource returns a source over table. placeholder is the bind marker
// for the name lookup ("?" for sqlite, "$1" for postgres).
func NewSQLSource(db *sql.DB, table, placeholder string) (*SQLSource, error) {
	if table == "" {
		table = "species"
	}
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid catalog table name %q", table)
	}
	if placeholder == "" {
		placeholder = "?"
	}
	return &SQLSource{db: db, table: table, placeholder: placeholder}, nil
}

func (s *SQLSource) selectClause() string {
	return "SELECT " + strings.Join(columns, ", ") + " FROM " + s.table
}

// ListSpecies implements domain.CatalogSource.
func (s *SQLSource) ListSpecies(ctx context.Context) ([]domain.SpeciesRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.selectClause()+" ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("select species: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.SpeciesRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate species: %w", err)
	}
	return out, nil
}

// GetSpecies implements domain.CatalogSource. Matching is case-insensitive
// and rows come back in ListSpecies order, so the first spelling wins.
func (s *SQLSource) GetSpecies(ctx context.Context, name string) (domain.SpeciesRecord, bool, error) {
	rows, err := s.db.QueryContext(ctx, s.selectClause()+" WHERE LOWER(name) = LOWER("+s.placeholder+") ORDER BY name", name)
	if err != nil {
		return domain.SpeciesRecord{}, false, fmt.Errorf("select species %s: %w", name, err)
	}
	defer func() { _ = rows.Close() }()
	var matches []domain.SpeciesRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return domain.SpeciesRecord{}, false, err
		}
		matches = append(matches, rec)
	}
	if err := rows.Err(); err != nil {
		return domain.SpeciesRecord{}, false, fmt.Errorf("iterate species: %w", err)
	}
	rec, ok := Find(matches, name)
	return rec, ok, nil
}

func scanRecord(rows *sql.Rows) (domain.SpeciesRecord, error) {
	var (
		rec                                                            domain.SpeciesRecord
		water, temp, ph, hardness, temperament, social, zone, activity sql.NullString
		fins, special, diet, care, feeds                               sql.NullString
		maxSize, territory, minTank, portion                           sql.NullFloat64
		schooling, feedings                                            sql.NullInt64
		nipper                                                         sql.NullBool
	)
	if err := rows.Scan(&rec.Name, &water, &temp, &ph, &hardness, &temperament, &social, &zone,
		&maxSize, &activity, &fins, &nipper, &schooling, &territory, &special, &diet, &care,
		&minTank, &feeds, &portion, &feedings); err != nil {
		return domain.SpeciesRecord{}, fmt.Errorf("scan species: %w", err)
	}
	rec.WaterType = water.String
	rec.TemperatureRange = temp.String
	rec.PHRange = ph.String
	rec.HardnessRange = hardness.String
	rec.Temperament = temperament.String
	rec.SocialBehavior = social.String
	rec.TankZone = zone.String
	rec.ActivityLevel = activity.String
	rec.FinVulnerability = fins.String
	rec.SpecialDiet = special.String
	rec.Diet = diet.String
	rec.CareLevel = care.String
	rec.MaxSizeCM = floatPtr(maxSize)
	rec.TerritorialSpaceCM = floatPtr(territory)
	rec.MinimumTankLiters = floatPtr(minTank)
	rec.PortionGrams = floatPtr(portion)
	rec.SchoolingMinNumber = intPtr(schooling)
	rec.FeedingsPerDay = intPtr(feedings)
	if nipper.Valid {
		v := nipper.Bool
		rec.FinNipper = &v
	}
	if feeds.Valid && strings.TrimSpace(feeds.String) != "" {
		for _, f := range strings.Split(feeds.String, ",") {
			if f = strings.TrimSpace(f); f != "" {
				rec.AcceptedFeeds = append(rec.AcceptedFeeds, f)
			}
		}
	}
	return rec, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
