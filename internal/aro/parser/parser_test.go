package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arolang/aro-sub011/internal/aro/ast"
)

func Test_Parse_singleAROStatement(t *testing.T) {
	prog, diags := Parse(`
		(ComputeTotal: Order Processing) {
			<Compute> the <sum> from <3> + <4>.
		}
	`)
	require.False(t, diags.HasErrors(), diags.Render("human"))
	require.Len(t, prog.FeatureSets, 1)

	fs := prog.FeatureSets[0]
	assert.Equal(t, "ComputeTotal", fs.Name)
	assert.Equal(t, "Order Processing", fs.BusinessActivity)
	require.Len(t, fs.Statements, 1)

	stmt, ok := fs.Statements[0].(*ast.AROStatement)
	require.True(t, ok)
	assert.Equal(t, "Compute", stmt.Verb)
	assert.Equal(t, "sum", stmt.Result.Base)
	require.NotNil(t, stmt.Object)
	assert.Equal(t, "from", stmt.Object.Preposition)

	bin, ok := stmt.Value.Expr.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpAdd, bin.Op)
}

func Test_Parse_objectNounNotTreatedAsExpression(t *testing.T) {
	prog, diags := Parse(`
		(StoreOrder: Order Processing) {
			<Store> the <order> from <order-repository>.
		}
	`)
	require.False(t, diags.HasErrors(), diags.Render("human"))
	stmt := prog.FeatureSets[0].Statements[0].(*ast.AROStatement)
	require.NotNil(t, stmt.Object)
	assert.Equal(t, "order-repository", stmt.Object.Noun.Base)
	assert.Nil(t, stmt.Value.Expr)
}

func Test_Parse_publishAndRequire(t *testing.T) {
	prog, diags := Parse(`
		(Setup: Order Processing) {
			publish the <OrderPlaced>.
			require the <order-repository>.
		}
	`)
	require.False(t, diags.HasErrors(), diags.Render("human"))
	stmts := prog.FeatureSets[0].Statements
	require.Len(t, stmts, 2)

	pub, ok := stmts[0].(*ast.PublishStatement)
	require.True(t, ok)
	assert.Equal(t, "OrderPlaced", pub.Name.Base)

	req, ok := stmts[1].(*ast.RequireStatement)
	require.True(t, ok)
	assert.Equal(t, "order-repository", req.Name.Base)
}

func Test_Parse_matchStatement(t *testing.T) {
	prog, diags := Parse(`
		(RouteStatus: Order Processing) {
			match <status> {
				when "paid" {
					<Log> the <message> from "paid order".
				}
				otherwise {
					<Log> the <message> from "unknown status".
				}
			}
		}
	`)
	require.False(t, diags.HasErrors(), diags.Render("human"))
	m, ok := prog.FeatureSets[0].Statements[0].(*ast.MatchStatement)
	require.True(t, ok)
	require.Len(t, m.Cases, 1)
	require.Len(t, m.Otherwise, 1)
}

func Test_Parse_forEachLoop(t *testing.T) {
	prog, diags := Parse(`
		(SumItems: Order Processing) {
			for each <item> in <order.items> {
				<Compute> the <running-total> from <running-total> + <item>.
			}
		}
	`)
	require.False(t, diags.HasErrors(), diags.Render("human"))
	loop, ok := prog.FeatureSets[0].Statements[0].(*ast.ForEachLoop)
	require.True(t, ok)
	assert.Equal(t, "item", loop.ItemName)
	require.Len(t, loop.Body, 1)
}

func Test_Parse_whereAndByModifiers(t *testing.T) {
	prog, diags := Parse(`
		(SummarizeOrders: Order Processing) {
			<Retrieve> the <orders> from <order-repository> where <status> == "paid" by <customer>.
		}
	`)
	require.False(t, diags.HasErrors(), diags.Render("human"))
	stmt := prog.FeatureSets[0].Statements[0].(*ast.AROStatement)
	require.NotNil(t, stmt.Query)
	assert.NotNil(t, stmt.Query.Where)
	require.NotNil(t, stmt.Query.By)
	assert.Equal(t, "customer", stmt.Query.By.Base)
}

func Test_Parse_operatorPrecedence(t *testing.T) {
	prog, diags := Parse(`
		(Compute: Order Processing) {
			<Compute> the <result> from <1> + <2> * <3>.
		}
	`)
	require.False(t, diags.HasErrors(), diags.Render("human"))
	stmt := prog.FeatureSets[0].Statements[0].(*ast.AROStatement)
	top, ok := stmt.Value.Expr.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpAdd, top.Op)
	right, ok := top.Right.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpMul, right.Op)
}

func Test_Parse_recoversFromBadFeatureSet(t *testing.T) {
	prog, diags := Parse(`
		not a feature set
		(Good: Order Processing) {
			<Log> the <message> from "ok".
		}
	`)
	assert.True(t, diags.HasErrors())
	require.Len(t, prog.FeatureSets, 1)
	assert.Equal(t, "Good", prog.FeatureSets[0].Name)
}
