package dto

// StudentLoginRequest is the payload for the student mock login.
type StudentLoginRequest struct {
	Email string `json:"email"`
}

// StudentLoginResponse echoes the derived student identity.
type StudentLoginResponse struct {
	StudentID string `json:"student_id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Status    string `json:"status"`
}

// FacultyLoginRequest is the payload for the faculty login.
type FacultyLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// FacultyLoginResponse confirms a faculty login.
type FacultyLoginResponse struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}
