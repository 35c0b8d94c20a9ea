package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type HTTPServer struct {
	Host string
	Port string
}

type RedisCache struct {
	Host     string
	Port     string
	Password string
}

type Postgres struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type S3 struct {
	Bucket string
	Prefix string
}

// Game holds the timer knobs of the session runtime. Defaults match
// production behavior; tests and local runs may shrink them.
type Game struct {
	VoteTimeout    time.Duration
	PresenceGrace  time.Duration
	InactivityWarn time.Duration
	InactivityKick time.Duration
	ReapInterval   time.Duration
	RoomTTL        time.Duration
}

type RateLimit struct {
	MaxRequests int
	Window      time.Duration
}

type Config struct {
	HTTP      HTTPServer
	Redis     RedisCache
	Postgres  Postgres
	S3        S3
	Game      Game
	RateLimit RateLimit
}

const logtag = "[config]"

func Load() *Config {
	configPath := flag.String("config", "", "path env file")
	flag.Parse()

	if *configPath != "" {
		if err := godotenv.Load(*configPath); err != nil {
			log.Fatalf("%s err loading env from file : %v", logtag, err)
		}
		log.Printf("%s using env from : %s", logtag, *configPath)
	} else {
		log.Printf("%s using env from .env", logtag)
		_ = godotenv.Load()
	}

	cfg := &Config{
		HTTP:      *newHTTP(),
		Redis:     *newRedis(),
		Postgres:  *newPostgres(),
		S3:        *newS3(),
		Game:      *newGame(),
		RateLimit: *newRateLimit(),
	}

	log.Printf("%s backend config : %+v\n", logtag, cfg)
	return cfg
}

func newHTTP() *HTTPServer {
	return &HTTPServer{
		Port: getenv("HTTP_PORT", "8080"),
		Host: getenv("HTTP_HOST", "localhost"),
	}
}

func newRedis() *RedisCache {
	return &RedisCache{
		Port:     getenv("REDIS_PORT", "6379"),
		Host:     getenv("REDIS_HOST", "redis"),
		Password: getenv("REDIS_PASSWORD", "shared"),
	}
}

func newPostgres() *Postgres {
	return &Postgres{
		Host:     getenv("DB_HOST", "localhost"),
		Port:     getenv("DB_PORT", "5432"),
		User:     getenv("DB_USER", "admin"),
		Password: getenv("DB_PASSWORD", "shared"),
		DBName:   getenv("DB_NAME", "bottlespin"),
		SSLMode:  getenv("DB_SSLMODE", "disable"),
	}
}

func newS3() *S3 {
	return &S3{
		Bucket: getenv("S3_BUCKET", "bottlespin-media"),
		Prefix: getenv("S3_PREFIX", "uploads/"),
	}
}

func newGame() *Game {
	return &Game{
		VoteTimeout:    getenvSeconds("GAME_VOTE_TIMEOUT_S", 30),
		PresenceGrace:  getenvSeconds("GAME_PRESENCE_GRACE_S", 120),
		InactivityWarn: getenvSeconds("GAME_INACTIVITY_WARN_S", 120),
		InactivityKick: getenvSeconds("GAME_INACTIVITY_KICK_S", 5),
		ReapInterval:   getenvSeconds("GAME_REAP_INTERVAL_S", 300),
		RoomTTL:        getenvSeconds("GAME_ROOM_TTL_S", 1800),
	}
}

func newRateLimit() *RateLimit {
	return &RateLimit{
		MaxRequests: getenvInt("RATELIMIT_MAX", 30),
		Window:      getenvSeconds("RATELIMIT_WINDOW_S", 60),
	}
}

func getenv(key, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		fmt.Printf("%s %s undefined. Using default value %s\n", logtag, key, defaultValue)
		return defaultValue
	}
	fmt.Printf("%s %s = %s\n", logtag, key, val)
	return val
}

func getenvInt(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		log.Printf("%s %s is not a number, using default %d", logtag, key, defaultValue)
		return defaultValue
	}
	return n
}

func getenvSeconds(key string, defaultValue int) time.Duration {
	return time.Duration(getenvInt(key, defaultValue)) * time.Second
}
