// Package aggregate parses GraphQL aggregate requests into a normalized
// plan over fact tables (measures, dimensions, calendar buckets, HAVING,
// ordering) and derives the GraphQL output type for each aggregate.
package aggregate

// SQLType is the physical SQL type of a measure or denormalized filter
// column, used for output type inference.
type SQLType int

const (
	SQLDecimal SQLType = iota
	SQLFloat
	SQLInt
	SQLBigInt
	SQLText
	SQLUUID
	SQLJSONB
	SQLJSON
	SQLTimestamp
	SQLDate
	SQLBoolean
)

// TemporalBucket is a time-granularity label.
type TemporalBucket int

const (
	BucketSecond TemporalBucket = iota
	BucketMinute
	BucketHour
	BucketDay
	BucketWeek
	BucketMonth
	BucketQuarter
	BucketYear
)

var bucketNames = map[string]TemporalBucket{
	"second": BucketSecond, "minute": BucketMinute, "hour": BucketHour,
	"day": BucketDay, "week": BucketWeek, "month": BucketMonth,
	"quarter": BucketQuarter, "year": BucketYear,
}

var bucketSQLNames = map[TemporalBucket]string{
	BucketSecond: "second", BucketMinute: "minute", BucketHour: "hour",
	BucketDay: "day", BucketWeek: "week", BucketMonth: "month",
	BucketQuarter: "quarter", BucketYear: "year",
}

func (b TemporalBucket) SQLName() string { return bucketSQLNames[b] }

// AggregateFunction enumerates the measure aggregation functions.
type AggregateFunction int

const (
	FnSum AggregateFunction = iota
	FnAvg
	FnMin
	FnMax
	FnStddev
	FnVariance
	FnArrayAgg
	FnJSONAgg
	FnJSONBAgg
	FnStringAgg
	FnCountDistinct
)

var fnSuffixes = map[string]AggregateFunction{
	"sum": FnSum, "avg": FnAvg, "min": FnMin, "max": FnMax,
	"stddev": FnStddev, "variance": FnVariance,
	"array_agg": FnArrayAgg, "json_agg": FnJSONAgg, "jsonb_agg": FnJSONBAgg,
	"string_agg": FnStringAgg, "count_distinct": FnCountDistinct,
}

var fnSQLNames = map[AggregateFunction]string{
	FnSum: "SUM", FnAvg: "AVG", FnMin: "MIN", FnMax: "MAX",
	FnStddev: "STDDEV", FnVariance: "VARIANCE", FnArrayAgg: "ARRAY_AGG",
	FnJSONAgg: "JSON_AGG", FnJSONBAgg: "JSONB_AGG", FnStringAgg: "STRING_AGG",
	FnCountDistinct: "COUNT",
}

func (f AggregateFunction) SQLName() string { return fnSQLNames[f] }

// BoolAggregateFunction enumerates boolean aggregation functions.
type BoolAggregateFunction int

const (
	FnBoolAnd BoolAggregateFunction = iota
	FnBoolOr
)

func (f BoolAggregateFunction) SQLName() string {
	if f == FnBoolOr {
		return "BOOL_OR"
	}
	return "BOOL_AND"
}

// HavingOperator enumerates comparison operators usable in HAVING.
type HavingOperator int

const (
	HavingEq HavingOperator = iota
	HavingNeq
	HavingGt
	HavingGte
	HavingLt
	HavingLte
)

var havingSuffixes = map[string]HavingOperator{
	"eq": HavingEq, "neq": HavingNeq, "gt": HavingGt,
	"gte": HavingGte, "lt": HavingLt, "lte": HavingLte,
}

var havingSQL = map[HavingOperator]string{
	HavingEq: "=", HavingNeq: "<>", HavingGt: ">",
	HavingGte: ">=", HavingLt: "<", HavingLte: "<=",
}

func (h HavingOperator) SQLOperator() string { return havingSQL[h] }

// GroupBySelectionKind tags the GroupBySelection variant.
type GroupBySelectionKind int

const (
	GroupByDimension GroupBySelectionKind = iota
	GroupByTemporalBucket
	GroupByCalendarDimension
)

// GroupBySelection is one entry in the GROUP BY list.
type GroupBySelection struct {
	Kind GroupBySelectionKind

	// GroupByDimension
	Path string

	// GroupByTemporalBucket
	Column string
	Bucket TemporalBucket

	// GroupByCalendarDimension
	SourceColumn   string
	CalendarColumn string
	JSONKey        string

	Alias string
}

// AggregateSelectionKind tags the AggregateSelection variant.
type AggregateSelectionKind int

const (
	AggCount AggregateSelectionKind = iota
	AggCountDistinct
	AggMeasure
	AggBool
)

// AggregateSelection is one entry in the aggregate selection list.
type AggregateSelection struct {
	Kind AggregateSelectionKind

	Field    string // AggCountDistinct, AggMeasure, AggBool
	Function AggregateFunction
	BoolFn   BoolAggregateFunction

	Alias string
}

// HavingCondition references an already-selected aggregate by alias.
type HavingCondition struct {
	Alias string
	Op    HavingOperator
	Value interface{}
}

// OrderDirection is ASC or DESC.
type OrderDirection int

const (
	OrderAsc OrderDirection = iota
	OrderDesc
)

// OrderByClause orders by an already-emitted alias.
type OrderByClause struct {
	Field     string
	Direction OrderDirection
}

// WhereField is a parsed WHERE entry from the aggregate request's flat
// "field_op" key form (distinct from the full filter.Clause AST used by
// §4.2, since the aggregate wire format is flat JSON keys rather than a
// nested tree).
type WhereField struct {
	Field string
	Op    string
	Value interface{}
}

// AggregationRequest is the fully parsed, normalized plan.
type AggregationRequest struct {
	Table      string
	Where      []WhereField
	GroupBy    []GroupBySelection
	Aggregates []AggregateSelection
	Having     []HavingCondition
	OrderBy    []OrderByClause
	Limit      *int
	Offset     *int
}

// DimensionPath declares one JSONB-extracted categorical attribute.
type DimensionPath struct {
	Name string
	Path string
	Type SQLType
}

// DenormalizedFilter is a physical column mirroring a JSONB path.
type DenormalizedFilter struct {
	Name    string
	Type    SQLType
	Indexed bool
}

// CalendarBucket is one granularity entry of a calendar dimension.
type CalendarBucket struct {
	Granularity string
	JSONKey     string
}

// CalendarDimension is a pre-materialized JSONB column whose keys encode a
// timestamp at multiple granularities.
type CalendarDimension struct {
	SourceColumn   string
	CalendarColumn string
	Buckets        []CalendarBucket
}

// FactTable is the metadata backing one `tf_<name>` table.
type FactTable struct {
	Name               string
	Measures           map[string]SQLType
	Dimensions         []DimensionPath
	DenormalizedFilters []DenormalizedFilter
	CalendarDimensions []CalendarDimension
}
