package service

import "github.com/primeapparel/marketplace-backend/internal/app/model"

// Actor is the authenticated caller a service acts for.
type Actor struct {
	ID   uint
	Role model.Role
}
