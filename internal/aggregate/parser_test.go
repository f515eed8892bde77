package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func salesFact() FactTable {
	return FactTable{
		Name:     "tf_sales",
		Measures: map[string]SQLType{"revenue": SQLDecimal, "quantity": SQLInt},
		DenormalizedFilters: []DenormalizedFilter{
			{Name: "occurred_at", Type: SQLTimestamp},
		},
	}
}

// E3 (Aggregate, calendar/date_trunc groupBy + measure + having + orderBy).
func TestParseE3(t *testing.T) {
	p := NewParser(salesFact())
	body := []byte(`{
		"table": "tf_sales",
		"groupBy": {"occurred_at_day": true},
		"aggregates": [{"count": {}}, {"revenue_sum": {}}],
		"having": {"revenue_sum_gt": 100},
		"orderBy": {"revenue_sum": "DESC"},
		"limit": 5
	}`)

	req, err := p.Parse(body)
	require.NoError(t, err)

	assert.Equal(t, "tf_sales", req.Table)
	require.Len(t, req.GroupBy, 1)
	assert.Equal(t, GroupBySelection{
		Kind: GroupByTemporalBucket, Column: "occurred_at", Bucket: BucketDay, Alias: "occurred_at_day",
	}, req.GroupBy[0])

	require.Len(t, req.Aggregates, 2)
	aliases := map[string]AggregateSelection{}
	for _, a := range req.Aggregates {
		aliases[a.Alias] = a
	}
	assert.Equal(t, AggregateSelection{Kind: AggCount, Alias: "count"}, aliases["count"])
	assert.Equal(t, AggregateSelection{Kind: AggMeasure, Field: "revenue", Function: FnSum, Alias: "revenue_sum"}, aliases["revenue_sum"])

	require.Len(t, req.Having, 1)
	assert.Equal(t, HavingCondition{Alias: "revenue_sum", Op: HavingGt, Value: float64(100)}, req.Having[0])

	require.Len(t, req.OrderBy, 1)
	assert.Equal(t, OrderByClause{Field: "revenue_sum", Direction: OrderDesc}, req.OrderBy[0])

	require.NotNil(t, req.Limit)
	assert.Equal(t, 5, *req.Limit)
}

func TestParseGroupByExplicitForm(t *testing.T) {
	p := NewParser(salesFact())
	req, err := p.Parse([]byte(`{"table":"tf_sales","groupBy":{"occurred_at":"week"}}`))
	require.NoError(t, err)
	require.Len(t, req.GroupBy, 1)
	assert.Equal(t, GroupBySelection{
		Kind: GroupByTemporalBucket, Column: "occurred_at", Bucket: BucketWeek, Alias: "occurred_at",
	}, req.GroupBy[0])
}

func TestParseGroupByCalendarDimensionTakesPriority(t *testing.T) {
	fact := salesFact()
	fact.CalendarDimensions = []CalendarDimension{
		{SourceColumn: "occurred_at", CalendarColumn: "occurred_at_calendar", Buckets: []CalendarBucket{
			{Granularity: "day", JSONKey: "day"},
		}},
	}
	p := NewParser(fact)
	req, err := p.Parse([]byte(`{"table":"tf_sales","groupBy":{"occurred_at_day":true}}`))
	require.NoError(t, err)
	require.Len(t, req.GroupBy, 1)
	assert.Equal(t, GroupBySelection{
		Kind: GroupByCalendarDimension, SourceColumn: "occurred_at",
		CalendarColumn: "occurred_at_calendar", JSONKey: "day", Alias: "occurred_at_day",
	}, req.GroupBy[0])
}

func TestParseGroupByPlainDimensionFallback(t *testing.T) {
	fact := salesFact()
	fact.Dimensions = []DimensionPath{{Name: "region", Path: "region", Type: SQLText}}
	p := NewParser(fact)
	req, err := p.Parse([]byte(`{"table":"tf_sales","groupBy":{"region":true}}`))
	require.NoError(t, err)
	require.Len(t, req.GroupBy, 1)
	assert.Equal(t, GroupBySelection{Kind: GroupByDimension, Path: "region", Alias: "region"}, req.GroupBy[0])
}

func TestParseHavingRejectsUnselectedAlias(t *testing.T) {
	p := NewParser(salesFact())
	_, err := p.Parse([]byte(`{"table":"tf_sales","aggregates":[{"count":{}}],"having":{"revenue_sum_gt":1}}`))
	require.Error(t, err)
}

func TestParseWhereUnknownSuffixDropped(t *testing.T) {
	p := NewParser(salesFact())
	req, err := p.Parse([]byte(`{"table":"tf_sales","where":{"region_bogus":"x","revenue_gt":10}}`))
	require.NoError(t, err)
	require.Len(t, req.Where, 1)
	assert.Equal(t, WhereField{Field: "revenue", Op: "gt", Value: float64(10)}, req.Where[0])
}

func TestParseCountDistinctField(t *testing.T) {
	fact := salesFact()
	fact.Dimensions = []DimensionPath{{Name: "region", Path: "region", Type: SQLText}}
	p := NewParser(fact)
	req, err := p.Parse([]byte(`{"table":"tf_sales","aggregates":[{"region_count_distinct":{}}]}`))
	require.NoError(t, err)
	require.Len(t, req.Aggregates, 1)
	assert.Equal(t, AggregateSelection{Kind: AggCountDistinct, Field: "region", Alias: "region_count_distinct"}, req.Aggregates[0])
}

func TestParseMissingTableRejectedByValidator(t *testing.T) {
	p := NewParser(salesFact())
	_, err := p.Parse([]byte(`{"where":{"revenue_gt":10}}`))
	require.Error(t, err)
}

func TestParseNegativeLimitRejectedByValidator(t *testing.T) {
	p := NewParser(salesFact())
	_, err := p.Parse([]byte(`{"table":"tf_sales","limit":-1}`))
	require.Error(t, err)
}

func TestParseNegativeOffsetRejectedByValidator(t *testing.T) {
	p := NewParser(salesFact())
	_, err := p.Parse([]byte(`{"table":"tf_sales","offset":-5}`))
	require.Error(t, err)
}

func TestInferOutputType(t *testing.T) {
	fact := salesFact()
	assert.Equal(t, GQLInt, fact.InferOutputType(AggregateSelection{Kind: AggCount}))
	assert.Equal(t, GQLFloat, fact.InferOutputType(AggregateSelection{Kind: AggMeasure, Field: "revenue", Function: FnSum}))
	assert.Equal(t, GQLInt, fact.InferOutputType(AggregateSelection{Kind: AggMeasure, Field: "quantity", Function: FnMax}))
	assert.Equal(t, GQLFloat, fact.InferOutputType(AggregateSelection{Kind: AggMeasure, Function: FnAvg}))
	assert.Equal(t, GQLJSON, fact.InferOutputType(AggregateSelection{Kind: AggMeasure, Function: FnArrayAgg}))
	assert.Equal(t, GQLBoolean, fact.InferOutputType(AggregateSelection{Kind: AggBool}))
}

func TestInferOutputTypeUUIDMeasureYieldsID(t *testing.T) {
	fact := salesFact()
	fact.Measures["customer_id"] = SQLUUID
	assert.Equal(t, GQLID, fact.InferOutputType(AggregateSelection{Kind: AggMeasure, Field: "customer_id", Function: FnMin}))
	assert.Equal(t, GQLID, fact.InferOutputType(AggregateSelection{Kind: AggMeasure, Field: "customer_id", Function: FnMax}))
}
