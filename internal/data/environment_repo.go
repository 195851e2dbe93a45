package data

import (
	"encoding/json"

	"reqbridge/internal/core"
)

type EnvironmentRepo struct {
	db *DB
}

func NewEnvironmentRepo(db *DB) *EnvironmentRepo {
	return &EnvironmentRepo{db: db}
}

func (r *EnvironmentRepo) Create(env *core.Environment) error {
	vars, err := json.Marshal(env.Variables)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(r.db.Rebind(
		`INSERT INTO environments (id, user_id, name, variables, is_active) VALUES (?, ?, ?, ?, ?)`),
		env.ID, env.UserID, env.Name, string(vars), boolToInt(env.IsActive))
	return err
}

func (r *EnvironmentRepo) ListByUser(userID string) ([]core.Environment, error) {
	rows, err := r.db.Query(r.db.Rebind(
		`SELECT id, user_id, name, variables, is_active FROM environments WHERE user_id = ? ORDER BY name`), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	envs := []core.Environment{}
	for rows.Next() {
		var env core.Environment
		var vars string
		var isActive int
		if err := rows.Scan(&env.ID, &env.UserID, &env.Name, &vars, &isActive); err != nil {
			return nil, err
		}
		env.Variables = map[string]string{}
		if vars != "" {
			if err := json.Unmarshal([]byte(vars), &env.Variables); err != nil {
				return nil, err
			}
		}
		env.IsActive = isActive == 1
		envs = append(envs, env)
	}
	return envs, rows.Err()
}
