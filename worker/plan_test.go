package worker

import (
	"context"
	"testing"

	"github.com/frankban/quicktest"
	"github.com/go-logr/logr"

	"github.com/andys/stageload/db"
)

func TestPlanner_Plan(t *testing.T) {
	c := quicktest.New(t)
	cfg := testConfig()
	src := openSQLite(c, "source", db.Source, cfg, carsTable, citiesTable,
		"INSERT INTO cars VALUES (1, 'Uno', 1), (2, 'Gol', 2), (5, 'Palio', 3)")
	dst := openSQLite(c, "staging", db.Destination, cfg, carsTable,
		"INSERT INTO cars VALUES (1, 'Uno', 1)")

	entries := NewPlanner(src, dst, cfg, logr.Discard()).Plan(context.Background(), descriptors("cars", "cities"))
	c.Assert(entries, quicktest.HasLen, 2)

	cars := entries[0]
	c.Assert(cars.Err, quicktest.IsNil)
	c.Assert(cars.Table, quicktest.Equals, "cars")
	c.Assert(cars.Watermark, quicktest.Equals, int64(1))
	c.Assert(cars.Pending, quicktest.Equals, int64(2))
	c.Assert(cars.Columns, quicktest.DeepEquals, db.ColumnSet{"ID_cars", "name", "price"})

	// cities is missing at the destination
	c.Assert(entries[1].Err, quicktest.Not(quicktest.IsNil))
	c.Assert(db.KindOf(entries[1].Err), quicktest.Equals, db.KindQueryExecution)

	// Planning never writes
	c.Assert(count(c, dst, "cars"), quicktest.Equals, int64(1))
	assertReleased(c, src, dst)
}
