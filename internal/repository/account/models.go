package account

type Account struct {
	Username     string `redis:"username"`
	Email        string `redis:"email"`
	PasswordHash string `redis:"password_hash"`
	CreatedAt    int64  `redis:"created_at"`
}

type SetAccountParams struct {
	AccountId    string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    int64
}
