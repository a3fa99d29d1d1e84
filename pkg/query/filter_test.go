package query_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesselworks/vesseltrace/pkg/query"
	"github.com/vesselworks/vesseltrace/pkg/store"
)

func testOn(id uint, serial string, date time.Time) store.TestRecord {
	return store.TestRecord{
		ID:     id,
		Asset:  store.Asset{SerialNumber: serial, Type: "cryo"},
		Params: store.TestParams{TestType: "pressure", TestDate: date},
		Result: store.ResultPassed,
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
}

func TestFilterTests_MonthMode(t *testing.T) {
	// 10 tests, 3 of them in February 2025.
	tests := make([]store.TestRecord, 0, 10)
	for i := 1; i <= 7; i++ {
		tests = append(tests,
			testOn(uint(i), "VT-1", date(2025, time.January, i)))
	}

	for i := 8; i <= 10; i++ {
		tests = append(tests,
			testOn(uint(i), "VT-1", date(2025, time.February, i)))
	}

	got := query.FilterTests(tests, nil, query.Filter{
		Period: &query.Period{
			Mode:  query.PeriodMonth,
			Year:  2025,
			Month: time.February,
		},
	})

	require.Len(t, got, 3)
	for _, tr := range got {
		assert.Equal(t, time.February, tr.Params.TestDate.Month())
	}
}

func TestFilterTests_QuarterMode(t *testing.T) {
	tests := []store.TestRecord{
		testOn(1, "VT-1", date(2025, time.March, 31)),  // Q1
		testOn(2, "VT-1", date(2025, time.April, 1)),   // Q2
		testOn(3, "VT-1", date(2025, time.June, 30)),   // Q2
		testOn(4, "VT-1", date(2025, time.July, 1)),    // Q3
		testOn(5, "VT-1", date(2024, time.May, 1)),     // Q2, wrong year
		testOn(6, "VT-1", date(2025, time.December, 1)), // Q4
	}

	got := query.FilterTests(tests, nil, query.Filter{
		Period: &query.Period{
			Mode:    query.PeriodQuarter,
			Year:    2025,
			Quarter: 2,
		},
	})

	require.Len(t, got, 2)
	assert.Equal(t, uint(2), got[0].ID)
	assert.Equal(t, uint(3), got[1].ID)
}

func TestFilterTests_RangeModeInclusive(t *testing.T) {
	tests := []store.TestRecord{
		testOn(1, "VT-1", date(2025, time.May, 1)),
		testOn(2, "VT-1", date(2025, time.May, 10)),
		testOn(3, "VT-1", date(2025, time.May, 20)),
	}

	got := query.FilterTests(tests, nil, query.Filter{
		Period: &query.Period{
			Mode: query.PeriodRange,
			From: date(2025, time.May, 1),
			To:   date(2025, time.May, 10),
		},
	})

	// Both endpoints are included.
	require.Len(t, got, 2)
}

func TestFilterTests_UnknownPeriodModeMatchesNothing(t *testing.T) {
	tests := []store.TestRecord{
		testOn(1, "VT-1", date(2025, time.May, 1)),
	}

	got := query.FilterTests(tests, nil, query.Filter{
		Period: &query.Period{Mode: "decade", Year: 2025},
	})
	assert.Empty(t, got)
}

func TestFilterTests_PredicatesAreANDed(t *testing.T) {
	a := testOn(1, "VT-100", date(2025, time.May, 1))
	b := testOn(2, "VT-200", date(2025, time.May, 1))
	b.Result = store.ResultFailed

	tests := []store.TestRecord{a, b}

	got := query.FilterTests(tests, nil, query.Filter{
		SerialContains: "VT-2",
		Result:         store.ResultFailed,
	})
	require.Len(t, got, 1)
	assert.Equal(t, uint(2), got[0].ID)

	// Same serial predicate with a non-matching result excludes everything.
	got = query.FilterTests(tests, nil, query.Filter{
		SerialContains: "VT-2",
		Result:         store.ResultPassed,
	})
	assert.Empty(t, got)
}

func TestFilterTests_SerialSubstring(t *testing.T) {
	tests := []store.TestRecord{
		testOn(1, "VT-100", date(2025, time.May, 1)),
		testOn(2, "XL-100", date(2025, time.May, 1)),
	}

	got := query.FilterTests(tests, nil, query.Filter{SerialContains: "T-1"})
	require.Len(t, got, 1)
	assert.Equal(t, uint(1), got[0].ID)
}

func TestFilterTests_RepairStatusPredicate(t *testing.T) {
	tests := []store.TestRecord{
		testOn(1, "VT-1", date(2025, time.May, 1)),
		testOn(2, "VT-2", date(2025, time.May, 1)),
		testOn(3, "VT-3", date(2025, time.May, 1)),
	}

	statusByTest := map[uint]store.RepairStatus{
		1: store.StatusPlanned,
		2: store.StatusCompleted,
	}

	got := query.FilterTests(tests, statusByTest, query.Filter{
		RepairStatus: string(store.StatusPlanned),
	})
	require.Len(t, got, 1)
	assert.Equal(t, uint(1), got[0].ID)

	// Synthetic "none" matches only tests without a linked repair.
	got = query.FilterTests(tests, statusByTest, query.Filter{
		RepairStatus: query.RepairStatusNone,
	})
	require.Len(t, got, 1)
	assert.Equal(t, uint(3), got[0].ID)
}

func TestFilterRepairs(t *testing.T) {
	repairs := []store.RepairRecord{
		{
			ID:     1,
			Asset:  store.Asset{SerialNumber: "VT-1", Type: "cryo"},
			Status: store.StatusPlanned,
			Info:   store.RepairInfo{RepairDate: date(2025, time.May, 2)},
		},
		{
			ID:     2,
			Asset:  store.Asset{SerialNumber: "VT-2", Type: "lpg"},
			Status: store.StatusCompleted,
			Info:   store.RepairInfo{RepairDate: date(2025, time.June, 2)},
		},
	}

	got := query.FilterRepairs(repairs, query.Filter{
		RepairStatus: string(store.StatusCompleted),
	})
	require.Len(t, got, 1)
	assert.Equal(t, uint(2), got[0].ID)

	got = query.FilterRepairs(repairs, query.Filter{
		Period: &query.Period{
			Mode:  query.PeriodMonth,
			Year:  2025,
			Month: time.May,
		},
	})
	require.Len(t, got, 1)
	assert.Equal(t, uint(1), got[0].ID)

	got = query.FilterRepairs(repairs, query.Filter{AssetType: "lpg"})
	require.Len(t, got, 1)
	assert.Equal(t, uint(2), got[0].ID)
}
