package users

import (
	"context"
	"errors"

	"github.com/graphql-go/graphql"

	"github.com/chatter/chatter-backend/internal/models"
	"github.com/chatter/chatter-backend/pkg/middleware"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("not allowed to modify another user")
)

// authorizeSelf lets a caller change only their own account. The subject is put
// on the request context by the auth middlewares.
func authorizeSelf(ctx context.Context, id string) error {
	sub := middleware.SubjectFromContext(ctx)
	if sub == "" {
		return ErrUnauthenticated
	}
	if sub != id {
		return ErrForbidden
	}
	return nil
}

var userType = graphql.NewObject(graphql.ObjectConfig{
	Name: "User",
	Fields: graphql.Fields{
		"_id": &graphql.Field{
			Type: graphql.NewNonNull(graphql.String),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(*models.User).ID.Hex(), nil
			},
		},
		"email": &graphql.Field{
			Type: graphql.NewNonNull(graphql.String),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(*models.User).Email, nil
			},
		},
	},
})

var createUserInputType = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "CreateUserInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"email":    &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		"password": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
	},
})

var updateUserInputType = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "UpdateUserInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"_id":      &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		"email":    &graphql.InputObjectFieldConfig{Type: graphql.String},
		"password": &graphql.InputObjectFieldConfig{Type: graphql.String},
	},
})

// Resolver exposes the users service as GraphQL fields.
type Resolver struct {
	svc *Service
}

func NewResolver(svc *Service) *Resolver { return &Resolver{svc: svc} }

func (r *Resolver) Queries() graphql.Fields {
	return graphql.Fields{
		"users": &graphql.Field{
			Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(userType))),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return r.svc.FindAll(p.Context)
			},
		},
		"user": &graphql.Field{
			Type: graphql.NewNonNull(userType),
			Args: graphql.FieldConfigArgument{
				"_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return r.svc.FindOne(p.Context, p.Args["_id"].(string))
			},
		},
	}
}

func (r *Resolver) Mutations() graphql.Fields {
	return graphql.Fields{
		"createUser": &graphql.Field{
			Type: graphql.NewNonNull(userType),
			Args: graphql.FieldConfigArgument{
				"createUserInput": &graphql.ArgumentConfig{Type: graphql.NewNonNull(createUserInputType)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				in, _ := p.Args["createUserInput"].(map[string]interface{})
				email, _ := in["email"].(string)
				password, _ := in["password"].(string)
				return r.svc.Create(p.Context, CreateUserInput{Email: email, Password: password})
			},
		},
		"updateUser": &graphql.Field{
			Type: graphql.NewNonNull(userType),
			Args: graphql.FieldConfigArgument{
				"updateUserInput": &graphql.ArgumentConfig{Type: graphql.NewNonNull(updateUserInputType)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				in, _ := p.Args["updateUserInput"].(map[string]interface{})
				id, _ := in["_id"].(string)
				if err := authorizeSelf(p.Context, id); err != nil {
					return nil, err
				}
				var upd UpdateUserInput
				if v, ok := in["email"].(string); ok {
					upd.Email = &v
				}
				if v, ok := in["password"].(string); ok {
					upd.Password = &v
				}
				return r.svc.Update(p.Context, id, upd)
			},
		},
		"removeUser": &graphql.Field{
			// nullable: removing an unknown user yields null
			Type: userType,
			Args: graphql.FieldConfigArgument{
				"_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				id := p.Args["_id"].(string)
				if err := authorizeSelf(p.Context, id); err != nil {
					return nil, err
				}
				u, err := r.svc.Remove(p.Context, id)
				if err != nil || u == nil {
					return nil, err
				}
				return u, nil
			},
		},
	}
}
