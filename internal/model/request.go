package model

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterCustomerRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type RegisterRiderRequest struct {
	RegisterCustomerRequest
	VehicleREG string `json:"vehicleREG"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}
