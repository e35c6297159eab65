package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/racktic/bookmarket/pkg/models"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite connection.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the SQLite database and runs migrations.
func New(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single writer, many readers.
	conn.SetMaxOpenConns(1)

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they do not exist.
func migrate(conn *sql.DB) error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS users (
		id             TEXT PRIMARY KEY,
		username       TEXT NOT NULL,
		email          TEXT UNIQUE NOT NULL,
		email_hash     TEXT UNIQUE NOT NULL,
		class_schedule TEXT NOT NULL DEFAULT '',
		created_at     DATETIME NOT NULL,
		updated_at     DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_users_email_hash ON users(email_hash);

	CREATE TABLE IF NOT EXISTS items (
		id                TEXT PRIMARY KEY,
		title             TEXT NOT NULL,
		username          TEXT NOT NULL,
		price_lower_bound REAL NOT NULL,
		price_upper_bound REAL NOT NULL,
		user_id           TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		meta_info         TEXT NOT NULL DEFAULT '{}',
		picture           TEXT NOT NULL DEFAULT '',
		sold              INTEGER NOT NULL DEFAULT 0,
		created_at        DATETIME NOT NULL,
		updated_at        DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_items_user_id ON items(user_id);
	CREATE INDEX IF NOT EXISTS idx_items_sold ON items(sold);

	CREATE TABLE IF NOT EXISTS needs (
		id                TEXT PRIMARY KEY,
		title             TEXT NOT NULL,
		username          TEXT NOT NULL,
		price_lower_bound REAL NOT NULL,
		price_upper_bound REAL NOT NULL,
		user_id           TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		meta_info         TEXT NOT NULL DEFAULT '{}',
		is_fulfilled      INTEGER NOT NULL DEFAULT 0,
		created_at        DATETIME NOT NULL,
		updated_at        DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_needs_user_id ON needs(user_id);

	CREATE TABLE IF NOT EXISTS purchases (
		id            TEXT PRIMARY KEY,
		item_id       TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
		seller_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		buyer_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		raiser_id     TEXT NOT NULL,
		price         REAL NOT NULL,
		time_slot     TEXT NOT NULL DEFAULT '',
		place         TEXT NOT NULL DEFAULT '',
		checked       INTEGER NOT NULL DEFAULT 0,
		checked_at    DATETIME,
		buyer_checked INTEGER NOT NULL DEFAULT 0,
		room_sold     INTEGER NOT NULL DEFAULT 0,
		results       INTEGER NOT NULL DEFAULT 0,
		created_at    DATETIME NOT NULL,
		updated_at    DATETIME NOT NULL,
		UNIQUE(item_id, seller_id, buyer_id)
	);

	CREATE TABLE IF NOT EXISTS chat_rooms (
		id             TEXT PRIMARY KEY,
		room_name      TEXT UNIQUE NOT NULL,
		seller_id      TEXT NOT NULL DEFAULT '',
		buyer_id       TEXT NOT NULL DEFAULT '',
		item_id        TEXT NOT NULL DEFAULT '',
		is_system_room INTEGER NOT NULL DEFAULT 0,
		created_at     DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chat_rooms_seller ON chat_rooms(seller_id);
	CREATE INDEX IF NOT EXISTS idx_chat_rooms_buyer ON chat_rooms(buyer_id);

	CREATE TABLE IF NOT EXISTS messages (
		id         TEXT PRIMARY KEY,
		room_id    TEXT NOT NULL REFERENCES chat_rooms(id) ON DELETE CASCADE,
		sender_id  TEXT NOT NULL,
		content    TEXT NOT NULL,
		category   TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_room_id ON messages(room_id);
	`
	_, err := conn.Exec(ddl)
	return err
}

// --- User operations ---

// userColumns is the SELECT column list for user queries.
const userColumns = `id, username, email, email_hash, class_schedule, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	u := &models.User{}
	var schedule string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.EmailHash, &schedule, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if schedule != "" {
		if err := json.Unmarshal([]byte(schedule), &u.ClassSchedule); err != nil {
			return nil, fmt.Errorf("decode class schedule: %w", err)
		}
	}
	return u, nil
}

// CreateUser inserts a new user.
func (db *DB) CreateUser(u *models.User) error {
	schedule, err := encodeSchedule(u.ClassSchedule)
	if err != nil {
		return err
	}
	const q = `INSERT INTO users (id, username, email, email_hash, class_schedule, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = db.conn.Exec(q, u.ID, u.Username, u.Email, u.EmailHash, schedule, u.CreatedAt, u.UpdatedAt)
	return err
}

// GetUserByID looks up a user by ID.
func (db *DB) GetUserByID(id string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return scanUser(db.conn.QueryRow(q, id))
}

// GetUserByEmail looks up a user by email.
func (db *DB) GetUserByEmail(email string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return scanUser(db.conn.QueryRow(q, email))
}

// GetUserByEmailHash looks up a user by normalized email hash.
func (db *DB) GetUserByEmailHash(hash string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email_hash = ?`
	return scanUser(db.conn.QueryRow(q, hash))
}

// UpdateUserSchedule replaces a user's class schedule wholesale.
func (db *DB) UpdateUserSchedule(userID string, entries []models.ClassEntry) error {
	schedule, err := encodeSchedule(entries)
	if err != nil {
		return err
	}
	const q = `UPDATE users SET class_schedule = ?, updated_at = ? WHERE id = ?`
	_, err = db.conn.Exec(q, schedule, time.Now(), userID)
	return err
}

func encodeSchedule(entries []models.ClassEntry) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("encode class schedule: %w", err)
	}
	return string(raw), nil
}

// --- Item operations ---

const itemColumns = `id, title, username, price_lower_bound, price_upper_bound, user_id, meta_info, picture, sold, created_at, updated_at`

func scanItem(row interface{ Scan(...interface{}) error }) (*models.Item, error) {
	it := &models.Item{}
	var meta string
	err := row.Scan(
		&it.ID, &it.Title, &it.Username, &it.PriceLowerBound, &it.PriceUpperBound,
		&it.UserID, &meta, &it.Picture, &it.Sold, &it.CreatedAt, &it.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(meta), &it.Meta); err != nil {
		return nil, fmt.Errorf("decode item meta: %w", err)
	}
	return it, nil
}

// CreateItem inserts a new item.
func (db *DB) CreateItem(it *models.Item) error {
	meta, err := json.Marshal(it.Meta)
	if err != nil {
		return fmt.Errorf("encode item meta: %w", err)
	}
	const q = `INSERT INTO items (id, title, username, price_lower_bound, price_upper_bound, user_id, meta_info, picture, sold, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = db.conn.Exec(q,
		it.ID, it.Title, it.Username, it.PriceLowerBound, it.PriceUpperBound,
		it.UserID, string(meta), it.Picture, it.Sold, it.CreatedAt, it.UpdatedAt,
	)
	return err
}

// GetItem looks up an item by ID.
func (db *DB) GetItem(id string) (*models.Item, error) {
	q := `SELECT ` + itemColumns + ` FROM items WHERE id = ?`
	return scanItem(db.conn.QueryRow(q, id))
}

// UpdateItem rewrites an item's mutable fields.
func (db *DB) UpdateItem(it *models.Item) error {
	meta, err := json.Marshal(it.Meta)
	if err != nil {
		return fmt.Errorf("encode item meta: %w", err)
	}
	const q = `UPDATE items SET title = ?, username = ?, price_lower_bound = ?, price_upper_bound = ?,
	           meta_info = ?, picture = ?, sold = ?, updated_at = ? WHERE id = ?`
	_, err = db.conn.Exec(q,
		it.Title, it.Username, it.PriceLowerBound, it.PriceUpperBound,
		string(meta), it.Picture, it.Sold, time.Now(), it.ID,
	)
	return err
}

// DeleteItem removes an item.
func (db *DB) DeleteItem(id string) error {
	_, err := db.conn.Exec(`DELETE FROM items WHERE id = ?`, id)
	return err
}

// ListOpenItems returns all unsold items in creation order.
func (db *DB) ListOpenItems() ([]models.Item, error) {
	q := `SELECT ` + itemColumns + ` FROM items WHERE sold = 0 ORDER BY created_at`
	return db.queryItems(q)
}

// ListItemsByUser returns a user's unsold items.
func (db *DB) ListItemsByUser(userID string) ([]models.Item, error) {
	q := `SELECT ` + itemColumns + ` FROM items WHERE user_id = ? AND sold = 0 ORDER BY created_at`
	return db.queryItems(q, userID)
}

func (db *DB) queryItems(q string, args ...interface{}) ([]models.Item, error) {
	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

// --- Need operations ---

const needColumns = `id, title, username, price_lower_bound, price_upper_bound, user_id, meta_info, is_fulfilled, created_at, updated_at`

func scanNeed(row interface{ Scan(...interface{}) error }) (*models.Need, error) {
	n := &models.Need{}
	var meta string
	err := row.Scan(
		&n.ID, &n.Title, &n.Username, &n.PriceLowerBound, &n.PriceUpperBound,
		&n.UserID, &meta, &n.IsFulfilled, &n.CreatedAt, &n.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(meta), &n.Meta); err != nil {
		return nil, fmt.Errorf("decode need meta: %w", err)
	}
	return n, nil
}

// CreateNeed inserts a new need.
func (db *DB) CreateNeed(n *models.Need) error {
	meta, err := json.Marshal(n.Meta)
	if err != nil {
		return fmt.Errorf("encode need meta: %w", err)
	}
	const q = `INSERT INTO needs (id, title, username, price_lower_bound, price_upper_bound, user_id, meta_info, is_fulfilled, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = db.conn.Exec(q,
		n.ID, n.Title, n.Username, n.PriceLowerBound, n.PriceUpperBound,
		n.UserID, string(meta), n.IsFulfilled, n.CreatedAt, n.UpdatedAt,
	)
	return err
}

// GetNeed looks up a need by ID.
func (db *DB) GetNeed(id string) (*models.Need, error) {
	q := `SELECT ` + needColumns + ` FROM needs WHERE id = ?`
	return scanNeed(db.conn.QueryRow(q, id))
}

// UpdateNeed rewrites a need's mutable fields.
func (db *DB) UpdateNeed(n *models.Need) error {
	meta, err := json.Marshal(n.Meta)
	if err != nil {
		return fmt.Errorf("encode need meta: %w", err)
	}
	const q = `UPDATE needs SET title = ?, username = ?, price_lower_bound = ?, price_upper_bound = ?,
	           meta_info = ?, is_fulfilled = ?, updated_at = ? WHERE id = ?`
	_, err = db.conn.Exec(q,
		n.Title, n.Username, n.PriceLowerBound, n.PriceUpperBound,
		string(meta), n.IsFulfilled, time.Now(), n.ID,
	)
	return err
}

// DeleteNeed removes a need.
func (db *DB) DeleteNeed(id string) error {
	_, err := db.conn.Exec(`DELETE FROM needs WHERE id = ?`, id)
	return err
}

// ListOpenNeeds returns all unfulfilled needs in creation order.
func (db *DB) ListOpenNeeds() ([]models.Need, error) {
	q := `SELECT ` + needColumns + ` FROM needs WHERE is_fulfilled = 0 ORDER BY created_at`
	return db.queryNeeds(q)
}

// ListNeedsByUser returns all of a user's needs.
func (db *DB) ListNeedsByUser(userID string) ([]models.Need, error) {
	q := `SELECT ` + needColumns + ` FROM needs WHERE user_id = ? ORDER BY created_at`
	return db.queryNeeds(q, userID)
}

func (db *DB) queryNeeds(q string, args ...interface{}) ([]models.Need, error) {
	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var needs []models.Need
	for rows.Next() {
		n, err := scanNeed(rows)
		if err != nil {
			return nil, err
		}
		needs = append(needs, *n)
	}
	return needs, rows.Err()
}
