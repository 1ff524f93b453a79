package service

import (
	"context"
	"fmt"
	"strings"

	"tienda-service/internal/models"
	"tienda-service/internal/util"

	"go.uber.org/zap"
)

// CustomerStore is the storage used by CustomerService
type CustomerStore interface {
	ListCustomers(ctx context.Context) ([]models.Customer, error)
	GetCustomer(ctx context.Context, id int64) (*models.Customer, error)
	CreateCustomer(ctx context.Context, c *models.Customer) error
	UpdateCustomer(ctx context.Context, c *models.Customer) error
	DeleteCustomer(ctx context.Context, id int64) error
}

// CustomerService manages customers
type CustomerService struct {
	store CustomerStore
}

func NewCustomerService(store CustomerStore) *CustomerService {
	return &CustomerService{store: store}
}

// CustomerRequest carries the editable customer fields
type CustomerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address   string `json:"address"`
	Phone     string `json:"phone"`
}

func (r *CustomerRequest) validate() error {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	if r.FirstName == "" || r.LastName == "" {
		return invalid("first and last name are required")
	}
	return nil
}

func (s *CustomerService) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	return s.store.ListCustomers(ctx)
}

func (s *CustomerService) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	return s.store.GetCustomer(ctx, id)
}

func (s *CustomerService) CreateCustomer(ctx context.Context, req *CustomerRequest) (*models.Customer, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	customer := &models.Customer{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Address:   req.Address,
		Phone:     req.Phone,
	}
	if err := s.store.CreateCustomer(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *CustomerService) UpdateCustomer(ctx context.Context, id int64, req *CustomerRequest) (*models.Customer, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	customer, err := s.store.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	customer.FirstName = req.FirstName
	customer.LastName = req.LastName
	customer.Address = req.Address
	customer.Phone = req.Phone
	if err := s.store.UpdateCustomer(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// DeleteCustomer removes a customer. Their sales stay, unattributed.
func (s *CustomerService) DeleteCustomer(ctx context.Context, id int64) error {
	return s.store.DeleteCustomer(ctx, id)
}

// UserStore is the storage used by UserService
type UserStore interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	UpdateUser(ctx context.Context, u *models.User) error
	DeleteUser(ctx context.Context, id int64) error
}

// UserService manages staff accounts
type UserService struct {
	store  UserStore
	logger *zap.Logger
}

func NewUserService(store UserStore) *UserService {
	return &UserService{store: store, logger: util.GetLogger()}
}

// UserRequest carries the editable user fields
type UserRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	IsStaff   bool   `json:"is_staff"`
	IsActive  *bool  `json:"is_active"`
	ImageURL  string `json:"image_url"`
}

func (r *UserRequest) validate() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.Email == "" || !strings.Contains(r.Email, "@") {
		return invalid("a valid email is required")
	}
	if !models.ValidRole(r.Role) {
		return invalid("unknown role %q", r.Role)
	}
	return nil
}

func (r *UserRequest) apply(u *models.User) {
	u.Email = r.Email
	u.FirstName = r.FirstName
	u.LastName = r.LastName
	u.Role = r.Role
	u.IsStaff = r.IsStaff
	u.ImageURL = r.ImageURL
	if r.IsActive != nil {
		u.IsActive = *r.IsActive
	}
}

// Authenticate resolves the acting user. Unknown and inactive users are
// both reported as ErrNotFound.
func (s *UserService) Authenticate(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, fmt.Errorf("user %d is inactive: %w", id, models.ErrNotFound)
	}
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.store.ListUsers(ctx)
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.store.GetUser(ctx, id)
}

// CreateUser creates an active user unless IsActive says otherwise
func (s *UserService) CreateUser(ctx context.Context, req *UserRequest) (*models.User, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	user := &models.User{IsActive: true}
	req.apply(user)
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("User created", zap.Int64("user_id", user.ID), zap.String("role", user.Role))
	return user, nil
}

func (s *UserService) UpdateUser(ctx context.Context, id int64, req *UserRequest) (*models.User, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	req.apply(user)
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	return s.store.DeleteUser(ctx, id)
}

// EnsureAdmin creates an active staff admin with the given email when no
// user has it yet
func (s *UserService) EnsureAdmin(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, invalid("admin email is required")
	}

	existing, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	admin := &models.User{
		Email:    email,
		Role:     models.RoleAdmin,
		IsStaff:  true,
		IsActive: true,
	}
	if err := s.store.CreateUser(ctx, admin); err != nil {
		return nil, err
	}
	s.logger.Info("Seeded admin user", zap.Int64("user_id", admin.ID), zap.String("email", email))
	return admin, nil
}
