package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"
)

var (
	geographies = []string{"Americas", "EMEA", "APAC", "Japan"}
	markets     = []string{"Financial Services", "Healthcare", "Retail", "Technology"}
	salesStages = []string{"Qualify", "Propose", "Negotiate", "Won", "Lost"}
)

// Seed creates the demo MQT tables and fills them with generated data. It is
// idempotent: existing tables are dropped and rebuilt. rows controls the
// pipeline table sizes; budget tables get half that.
func (s *Store) Seed(ctx context.Context, rows int) error {
	if rows <= 0 {
		rows = 100
	}
	faker := gofakeit.New(1)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	if err := createDemoTables(ctx, tx); err != nil {
		return err
	}
	if err := seedConsulting(ctx, tx, faker, "PROD_MQT_CONSULTING_PIPELINE", rows); err != nil {
		return err
	}
	if err := seedConsulting(ctx, tx, faker, "PROD_MQT_CONSULTING_OPPORTUNITY", rows); err != nil {
		return err
	}
	if err := seedSaaS(ctx, tx, faker, rows); err != nil {
		return err
	}
	if err := seedSoftwarePipeline(ctx, tx, faker, rows); err != nil {
		return err
	}
	if err := seedBudget(ctx, tx, faker, "PROD_MQT_CONSULTING_BUDGET", rows/2); err != nil {
		return err
	}
	if err := seedBudget(ctx, tx, faker, "PROD_MQT_SOFTWARE_TRANSACTIONAL_BUDGET", rows/2); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed transaction: %w", err)
	}
	s.logger.Info("demo warehouse seeded", zap.Int("rows_per_table", rows))
	return nil
}

func createDemoTables(ctx context.Context, tx *sql.Tx) error {
	consulting := `(
		OPPTY_ID TEXT,
		CLIENT_NAME TEXT,
		ACCOUNT_NAME TEXT,
		GEOGRAPHY TEXT,
		MARKET TEXT,
		SALES_STAGE TEXT,
		OPPORTUNITY_VALUE REAL,
		OPEN_PIPELINE REAL,
		OPEN_PIPELINE_AMT REAL,
		PPV_AMT REAL,
		IBM_GEN_AI_IND INTEGER,
		PARTNER_GEN_AI_IND INTEGER,
		OPPORTUNITY_CREATE_DATE TEXT,
		CLOSE_DATE TEXT,
		RELATIVE_QUARTER_MNEUMONIC TEXT,
		WEEK INTEGER,
		QUARTER INTEGER,
		YEAR INTEGER,
		SNAPSHOT_LEVEL TEXT
	)`

	ddl := map[string]string{
		"PROD_MQT_CONSULTING_PIPELINE":    consulting,
		"PROD_MQT_CONSULTING_OPPORTUNITY": consulting,
		"PROD_MQT_SW_SAAS_OPPORTUNITY": `(
			OPPORTUNITY_NUMBER TEXT,
			ACCOUNT_NAME TEXT,
			OPEN_PIPELINE REAL,
			SALES_STAGE TEXT,
			OPPORTUNITY_VALUE REAL
		)`,
		"PROD_MQT_SOFTWARE_TRANSACTIONAL_PIPELINE": `(
			GEOGRAPHY TEXT,
			MARKET TEXT,
			PPV REAL,
			PPV_AMT REAL,
			OPPORTUNITY_VALUE REAL,
			SALES_STAGE TEXT
		)`,
		"PROD_MQT_CONSULTING_BUDGET": `(
			GEOGRAPHY TEXT,
			MARKET TEXT,
			YEAR INTEGER,
			QUARTER INTEGER,
			MONTH INTEGER,
			REVENUE_BUDGET_AMT REAL,
			SIGNINGS_BUDGET_AMT REAL,
			GROSS_PROFIT_BUDGET_AMT REAL
		)`,
		"PROD_MQT_SOFTWARE_TRANSACTIONAL_BUDGET": `(
			GEOGRAPHY TEXT,
			MARKET TEXT,
			YEAR INTEGER,
			QUARTER INTEGER,
			MONTH INTEGER,
			REVENUE_BUDGET REAL,
			REVENUE_BUDGET_AMT REAL
		)`,
	}

	for table, columns := range ddl {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return fmt.Errorf("failed to drop %s: %w", table, err)
		}
		if _, err := tx.ExecContext(ctx, "CREATE TABLE "+table+" "+columns); err != nil {
			return fmt.Errorf("failed to create %s: %w", table, err)
		}
	}
	return nil
}

func seedConsulting(ctx context.Context, tx *sql.Tx, faker *gofakeit.Faker, table string, rows int) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+table+` VALUES
		(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare %s insert: %w", table, err)
	}
	defer stmt.Close()

	now := time.Now()
	for i := 1; i <= rows; i++ {
		value := float64(faker.Number(50_000, 5_000_000))
		_, err := stmt.ExecContext(ctx,
			fmt.Sprintf("OPP_%05d", i),
			faker.Company(),
			faker.Company(),
			faker.RandomString(geographies),
			faker.RandomString(markets),
			faker.RandomString(salesStages),
			value,
			value,
			value,
			value*0.9,
			faker.Number(0, 1),
			faker.Number(0, 1),
			faker.DateRange(now.AddDate(-1, 0, 0), now).Format("2006-01-02"),
			faker.DateRange(now, now.AddDate(0, 6, 0)).Format("2006-01-02"),
			"CQ",
			faker.Number(1, 52),
			faker.Number(1, 4),
			now.Year(),
			"W",
		)
		if err != nil {
			return fmt.Errorf("failed to seed %s: %w", table, err)
		}
	}
	return nil
}

func seedSaaS(ctx context.Context, tx *sql.Tx, faker *gofakeit.Faker, rows int) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO PROD_MQT_SW_SAAS_OPPORTUNITY VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare saas insert: %w", err)
	}
	defer stmt.Close()

	for i := 1; i <= rows; i++ {
		value := float64(faker.Number(30_000, 3_000_000))
		_, err := stmt.ExecContext(ctx,
			fmt.Sprintf("SAAS_%05d", i),
			faker.Company(),
			value,
			faker.RandomString(salesStages),
			value,
		)
		if err != nil {
			return fmt.Errorf("failed to seed saas opportunities: %w", err)
		}
	}
	return nil
}

func seedSoftwarePipeline(ctx context.Context, tx *sql.Tx, faker *gofakeit.Faker, rows int) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO PROD_MQT_SOFTWARE_TRANSACTIONAL_PIPELINE VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare software pipeline insert: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < rows; i++ {
		ppv := float64(faker.Number(500_000, 15_000_000))
		_, err := stmt.ExecContext(ctx,
			faker.RandomString(geographies),
			faker.RandomString(markets),
			ppv,
			ppv,
			ppv*0.8,
			faker.RandomString(salesStages),
		)
		if err != nil {
			return fmt.Errorf("failed to seed software pipeline: %w", err)
		}
	}
	return nil
}

func seedBudget(ctx context.Context, tx *sql.Tx, faker *gofakeit.Faker, table string, rows int) error {
	columns := "(?, ?, ?, ?, ?, ?, ?, ?)"
	if table == "PROD_MQT_SOFTWARE_TRANSACTIONAL_BUDGET" {
		columns = "(?, ?, ?, ?, ?, ?, ?)"
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO "+table+" VALUES "+columns)
	if err != nil {
		return fmt.Errorf("failed to prepare %s insert: %w", table, err)
	}
	defer stmt.Close()

	year := time.Now().Year()
	for i := 0; i < rows; i++ {
		revenue := float64(faker.Number(1_000_000, 50_000_000))
		args := []any{
			faker.RandomString(geographies),
			faker.RandomString(markets),
			year,
			faker.Number(1, 4),
			faker.Number(1, 12),
			revenue,
		}
		if table == "PROD_MQT_SOFTWARE_TRANSACTIONAL_BUDGET" {
			args = append(args, revenue)
		} else {
			args = append(args, revenue*0.8, revenue*0.3)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to seed %s: %w", table, err)
		}
	}
	return nil
}
