package types

// RegisterRequest is the body of POST /users
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=254"`
	Username  string `json:"username" binding:"required,max=150,username"`
	FirstName string `json:"first_name" binding:"required,max=150"`
	LastName  string `json:"last_name" binding:"required,max=150"`
	Password  string `json:"password" binding:"required,min=8,max=128"`
}

// LoginRequest is the body of POST /auth/token/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SetPasswordRequest is the body of POST /users/set_password
type SetPasswordRequest struct {
	NewPassword     string `json:"new_password" binding:"required,min=8,max=128"`
	CurrentPassword string `json:"current_password" binding:"required"`
}

// RecipeIngredientInput is one {id, amount} pair of a recipe payload.
// Amounts are checked by the recipe service so the error names the rule.
type RecipeIngredientInput struct {
	ID     uint `json:"id"`
	Amount int  `json:"amount"`
}

// RecipeRequest is the body of POST /recipes and PATCH /recipes/:id.
// The author always comes from the token, never from the body.
type RecipeRequest struct {
	Ingredients []RecipeIngredientInput `json:"ingredients"`
	Tags        []uint                  `json:"tags"`
	Image       string                  `json:"image"`
	Name        string                  `json:"name" binding:"required,max=200"`
	Text        string                  `json:"text" binding:"required"`
	CookingTime int                     `json:"cooking_time" binding:"required,min=1,max=32767"`
}

// TagRequest is the body of POST /tags and PATCH /tags/:id
type TagRequest struct {
	Name  string `json:"name" binding:"required,max=8"`
	Slug  string `json:"slug" binding:"required,max=50,slug"`
	Color string `json:"color" binding:"required,hexcolor,len=7"`
}

// IngredientRequest is the body of POST /ingredients and PATCH /ingredients/:id
type IngredientRequest struct {
	Name            string `json:"name" binding:"required,max=100"`
	MeasurementUnit string `json:"measurement_unit" binding:"required,max=30"`
}
