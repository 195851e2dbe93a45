package data

import (
	"encoding/json"

	"reqbridge/internal/core"
)

// RequestRepo stores saved and favorite requests. Auth configs are encrypted
// at rest through the injected cipher; headers/params are stored as JSON.
type RequestRepo struct {
	db     *DB
	cipher core.Cipher
}

func NewRequestRepo(db *DB, cipher core.Cipher) *RequestRepo {
	return &RequestRepo{db: db, cipher: cipher}
}

func (r *RequestRepo) SaveRequest(req *core.SavedRequest) error {
	headers, params, authEnc, err := r.encodeFields(req.Headers, req.Params, req.Auth)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(r.db.Rebind(
		`INSERT INTO saved_requests (id, user_id, name, method, url, headers, params, body, auth_enc, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		req.ID, req.UserID, req.Name, req.Method, req.URL, headers, params, req.Body, authEnc, req.CreatedAt)
	return err
}

func (r *RequestRepo) ListSaved(userID string) ([]core.SavedRequest, error) {
	rows, err := r.db.Query(r.db.Rebind(
		`SELECT id, user_id, name, method, url, headers, params, body, auth_enc, created_at
		 FROM saved_requests WHERE user_id = ? ORDER BY created_at DESC`), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := []core.SavedRequest{}
	for rows.Next() {
		var req core.SavedRequest
		var headers, params, authEnc string
		if err := rows.Scan(&req.ID, &req.UserID, &req.Name, &req.Method, &req.URL,
			&headers, &params, &req.Body, &authEnc, &req.CreatedAt); err != nil {
			return nil, err
		}
		if req.Headers, req.Params, req.Auth, err = r.decodeFields(headers, params, authEnc); err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func (r *RequestRepo) SaveFavorite(fav *core.FavoriteRequest) error {
	headers, params, authEnc, err := r.encodeFields(fav.Headers, fav.Params, fav.Auth)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(r.db.Rebind(
		`INSERT INTO favorite_requests (id, user_id, name, method, url, headers, params, body, auth_enc, folder, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		fav.ID, fav.UserID, fav.Name, fav.Method, fav.URL, headers, params, fav.Body, authEnc, fav.Folder, fav.CreatedAt)
	return err
}

func (r *RequestRepo) ListFavorites(userID string) ([]core.FavoriteRequest, error) {
	rows, err := r.db.Query(r.db.Rebind(
		`SELECT id, user_id, name, method, url, headers, params, body, auth_enc, folder, created_at
		 FROM favorite_requests WHERE user_id = ? ORDER BY created_at DESC`), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	favorites := []core.FavoriteRequest{}
	for rows.Next() {
		var fav core.FavoriteRequest
		var headers, params, authEnc string
		if err := rows.Scan(&fav.ID, &fav.UserID, &fav.Name, &fav.Method, &fav.URL,
			&headers, &params, &fav.Body, &authEnc, &fav.Folder, &fav.CreatedAt); err != nil {
			return nil, err
		}
		if fav.Headers, fav.Params, fav.Auth, err = r.decodeFields(headers, params, authEnc); err != nil {
			return nil, err
		}
		favorites = append(favorites, fav)
	}
	return favorites, rows.Err()
}

func (r *RequestRepo) encodeFields(headers, params map[string]string, auth core.AuthConfig) (string, string, string, error) {
	h, err := json.Marshal(headers)
	if err != nil {
		return "", "", "", err
	}
	p, err := json.Marshal(params)
	if err != nil {
		return "", "", "", err
	}
	a, err := json.Marshal(auth)
	if err != nil {
		return "", "", "", err
	}
	authEnc, err := r.cipher.Encrypt(string(a))
	if err != nil {
		return "", "", "", err
	}
	return string(h), string(p), authEnc, nil
}

func (r *RequestRepo) decodeFields(headers, params, authEnc string) (map[string]string, map[string]string, core.AuthConfig, error) {
	h := map[string]string{}
	p := map[string]string{}
	var auth core.AuthConfig
	if headers != "" {
		if err := json.Unmarshal([]byte(headers), &h); err != nil {
			return nil, nil, auth, err
		}
	}
	if params != "" {
		if err := json.Unmarshal([]byte(params), &p); err != nil {
			return nil, nil, auth, err
		}
	}
	if authEnc != "" {
		plain, err := r.cipher.Decrypt(authEnc)
		if err != nil {
			return nil, nil, auth, err
		}
		if err := json.Unmarshal([]byte(plain), &auth); err != nil {
			return nil, nil, auth, err
		}
	}
	return h, p, auth, nil
}
