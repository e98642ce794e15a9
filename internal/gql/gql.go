package gql

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/graphql-go/graphql"
)

// FieldProvider is implemented by module resolvers contributing root fields.
type FieldProvider interface {
	Queries() graphql.Fields
	Mutations() graphql.Fields
}

// NewSchema merges the root fields of every provider into one schema.
func NewSchema(providers ...FieldProvider) (graphql.Schema, error) {
	queries := graphql.Fields{}
	mutations := graphql.Fields{}
	for _, p := range providers {
		for name, f := range p.Queries() {
			queries[name] = f
		}
		for name, f := range p.Mutations() {
			mutations[name] = f
		}
	}
	cfg := graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{Name: "Query", Fields: queries}),
	}
	if len(mutations) > 0 {
		cfg.Mutation = graphql.NewObject(graphql.ObjectConfig{Name: "Mutation", Fields: mutations})
	}
	return graphql.NewSchema(cfg)
}

type request struct {
	Query         string                 `json:"query" binding:"required"`
	Variables     map[string]interface{} `json:"variables"`
	OperationName string                 `json:"operationName"`
}

// Handler executes POSTed GraphQL operations. Resolver failures are reported in
// the "errors" array with status 200, as GraphQL clients expect.
func Handler(schema graphql.Schema) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		res := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Request.Context(),
		})
		c.JSON(http.StatusOK, res)
	}
}
