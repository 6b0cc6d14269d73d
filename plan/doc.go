package plan

// The following documentation describes how a validated query is mapped to
// a tree of logical operators.
//
// The builder emits the operators bottom up, each one consuming the rows of
// the previous one, in the order a SELECT statement is evaluated:
//
// 1) Scan / Values
//    One Scan per FROM entry, joined left deep in text order. The join
//    condition is the ON clause, a comma or CROSS join is an inner join
//    without condition. The output of a join is the concatenation of the
//    left and the right columns, so a column reference of the validated
//    query is already the position inside of this concatenation. A query
//    without FROM reads one empty row out of Values.
//
// 2) Filter
//    The WHERE clause, as is. Splitting it and pushing the pieces closer to
//    the data is the job of the optimizer, the builder does not do that.
//
// 3) Aggregate
//    If the query groups or aggregates, every distinct aggregate call found
//    in SELECT, HAVING and ORDER BY is computed once. The output of the
//    aggregate is the group keys followed by the calls, and every
//    expression above it is rewritten into references to those columns.
//    HAVING becomes a Filter on top of the aggregate.
//
// 4) Project
//    The SELECT list. ORDER BY expressions which are not part of the
//    output are appended as hidden columns named ORDER$n, so the sort
//    can see them.
//
// 5) Distinct
//    SELECT DISTINCT is an Aggregate grouping by every projected column
//    without calls.
//
// 6) Sort, Limit
//    ORDER BY keys address the columns of the projection, LIMIT follows.
//    When hidden sort columns exist, a last Project drops them again.
//
// Every node computes its output schema when built and never changes it.
// Check verifies that the expressions of a tree agree with the schemas of
// their inputs.
