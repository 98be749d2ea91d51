package utils

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"bitbucket.org/partsadmin/parts_backend/config"
)

func GetCacheLifespan() time.Duration {
	lifespan, err := strconv.Atoi(os.Getenv("CACHE_LIFESPAN"))
	if err != nil {
		lifespan = 1
	}
	return time.Duration(lifespan) * time.Hour
}

/* Redis object cache */

// store instance, obj should be a pointer
func StoreRedis[T any](obj any, id int) error {
	key := GetTypeName[T]() + ":" + fmt.Sprint(id)
	return config.SetRedisObject(key, &obj, GetCacheLifespan())
}

// get from redis
// returns nil if does not exist
func RetrieveRedis[T any](id int) (*T, error) {
	var result *T
	key := GetTypeName[T]() + ":" + fmt.Sprint(id)
	exists, err := config.GetRedisObject(key, &result)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return result, nil
}

// remove an instance, Type:$id
func RemoveRedisItem[T any](id int) error {
	key := GetTypeName[T]() + ":" + fmt.Sprint(id)
	return config.RemoveRedisKey(key)
}

/* Sessions */

func SessionLifespan() time.Duration {
	tokenLifespan, err := strconv.Atoi(os.Getenv("TOKEN_HOUR_LIFESPAN"))
	if err != nil {
		tokenLifespan = 12
	}
	return time.Duration(tokenLifespan) * time.Hour
}

// StoreSession records a live token so logout can revoke it before expiry.
func StoreSession(token string, username string) error {
	return config.SetRedisValue("Token:"+token, username, SessionLifespan())
}

func GetSession(token string) (string, bool, error) {
	return config.GetRedisValue("Token:" + token)
}

func RevokeSession(token string) error {
	return config.RemoveRedisKey("Token:" + token)
}
